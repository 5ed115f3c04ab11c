package batch_engine

import (
	"fmt"
	"strings"

	"github.com/nadavlev/hebscribe/internal/models"
)

// ExportFileName is the name of the downloadable artifact.
const ExportFileName = "pdf_extraction_results.txt"

// Export renders all successful transcripts as one text blob: per-file blocks
// delimited by START/END markers, separated by blank lines, in queue order.
// Calling it twice without mutating state yields byte-identical output.
func (s *Service) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocks []string
	for _, rec := range s.records {
		if rec.Status != models.StatusSuccess {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("START: %s\n%s\nEND: %s", rec.FileName, rec.Result, rec.FileName))
	}
	if len(blocks) == 0 {
		return "", ErrNoResults
	}
	return strings.Join(blocks, "\n\n"), nil
}
