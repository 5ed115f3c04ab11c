package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/nadavlev/hebscribe/internal/core"
	"github.com/nadavlev/hebscribe/internal/models"
)

const pageMIMEType = "application/pdf"

// PdfcpuRenderer turns raw PDF bytes into an ordered sequence of single-page
// documents. The source is optimized and split once per invocation; pages are
// then read from disk one at a time, so memory stays bounded to one page.
type PdfcpuRenderer struct{}

func NewPdfcpuRenderer() *PdfcpuRenderer {
	return &PdfcpuRenderer{}
}

// RenderPages validates and splits the document. Any failure here means the
// bytes are not a usable PDF and is reported as a *core.RenderError.
func (r *PdfcpuRenderer) RenderPages(ctx context.Context, data []byte) (core.PageSequence, error) {
	tempDir, err := os.MkdirTemp("", "hebscribe-render-*")
	if err != nil {
		return nil, &core.RenderError{Msg: "could not create render workspace", Err: err}
	}

	seq, err := splitIntoPages(tempDir, data)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, err
	}
	return seq, nil
}

func splitIntoPages(tempDir string, data []byte) (*pageSequence, error) {
	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o600); err != nil {
		return nil, &core.RenderError{Msg: "could not stage document", Err: err}
	}

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := api.OptimizeFile(sourcePath, optimizedPath, cfg); err != nil {
		return nil, &core.RenderError{Msg: "document is not a readable PDF", Err: err}
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, &core.RenderError{Msg: "could not determine page count", Err: err}
	}
	if pageCount == 0 {
		return nil, &core.RenderError{Msg: "document has no pages"}
	}

	if err := api.SplitFile(optimizedPath, tempDir, 1, cfg); err != nil {
		return nil, &core.RenderError{Msg: "could not split document into pages", Err: err}
	}

	return &pageSequence{dir: tempDir, count: pageCount}, nil
}

// pageSequence serves split pages lazily from the render workspace.
type pageSequence struct {
	dir   string
	count int
}

func (s *pageSequence) Count() int { return s.count }

func (s *pageSequence) Page(ctx context.Context, n int) (*models.PageImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.RenderError{Msg: "render cancelled", Err: err}
	}
	if n < 1 || n > s.count {
		return nil, &core.RenderError{Msg: fmt.Sprintf("page %d out of range 1..%d", n, s.count)}
	}

	// pdfcpu names split output <basename>_<page>.pdf.
	pagePath := filepath.Join(s.dir, fmt.Sprintf("optimized_%d.pdf", n))
	data, err := os.ReadFile(pagePath)
	if err != nil {
		return nil, &core.RenderError{Msg: fmt.Sprintf("page %d could not be produced", n), Err: err}
	}

	return &models.PageImage{Number: n, MIMEType: pageMIMEType, Data: data}, nil
}

func (s *pageSequence) Close() error {
	return os.RemoveAll(s.dir)
}

var _ core.PageRenderer = (*PdfcpuRenderer)(nil)
