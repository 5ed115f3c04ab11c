package llm

import (
	"context"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nadavlev/hebscribe/internal/core"
	"github.com/nadavlev/hebscribe/internal/models"
)

// --- Recognition Model Prompts ---
const RecognizerSystemPrompt = "You are a precise OCR engine for Hebrew-language documents. You transcribe exactly what is printed, right-to-left, preserving paragraph breaks. You never add commentary."
const RecognizerUserPrompt = `Extract the main body text from this page of a Hebrew PDF document.

Follow these rules:
- Transcribe the Hebrew body text exactly as printed.
- Exclude headers, footers, and page numbers.
- Exclude document titles that repeat on every page.
- Exclude footer contact lines (addresses, phone numbers, emails).
- Return only the extracted text, with no preamble and no explanation.`

// GeminiRecognizer sends one page at a time to a Gemini multimodal model.
// The client is stateless between calls; a failed page call is surfaced as a
// *core.RecognitionError and is never retried here.
type GeminiRecognizer struct {
	client    *genai.Client
	modelName string
}

func NewGeminiRecognizer(ctx context.Context, apiKey, modelName string) (*GeminiRecognizer, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiRecognizer{client: cl, modelName: modelName}, nil
}

func (g *GeminiRecognizer) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// RecognizeText submits a single rendered page plus the fixed extraction
// instruction and returns the transcript for that page.
func (g *GeminiRecognizer) RecognizeText(ctx context.Context, page *models.PageImage) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RecognizerSystemPrompt)},
	}

	blob := genai.Blob{MIMEType: page.MIMEType, Data: page.Data}
	resp, err := m.GenerateContent(ctx, blob, genai.Text(RecognizerUserPrompt))
	if err != nil {
		return "", &core.RecognitionError{Msg: "recognition call failed", Err: err}
	}

	text := collectText(resp)
	if text == "" {
		return "", &core.RecognitionError{Msg: "recognition returned an empty response"}
	}
	return text, nil
}

// collectText concatenates the text parts of the first candidate. Gemini
// occasionally splits one transcript across several parts.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

var _ core.Recognizer = (*GeminiRecognizer)(nil)
