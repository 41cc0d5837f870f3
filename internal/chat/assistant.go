package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/verify"
)

const personaPrompt = `You are Sam, a friendly agricultural extension officer for UCF,
a fertilizer company serving smallholder farmers in Zimbabwe. Answer in short,
practical WhatsApp-style messages. Recommend UCF products where they genuinely fit.
If a question needs an in-person agronomist, say so.`

// Assistant wraps a chat provider with the bot's prompt kit. Every method
// is best-effort; callers fall back to canned text on error.
type Assistant struct {
	provider Provider
	model    string
	logger   *slog.Logger
}

// NewAssistant creates the assistant facade.
func NewAssistant(log *slog.Logger, provider Provider, model string) *Assistant {
	if log == nil {
		log = slog.Default()
	}
	return &Assistant{
		provider: provider,
		model:    model,
		logger:   log.With(slog.String("service", "assistant")),
	}
}

// Reply answers a free-form farmer message in Sam's voice.
func (a *Assistant) Reply(ctx context.Context, userName, text string) (string, error) {
	greeting := ""
	if userName != "" {
		greeting = fmt.Sprintf("The farmer's name is %s.", userName)
	}
	result, err := a.provider.Chat(ctx, Request{
		Model:     a.model,
		MaxTokens: 400,
		Messages: []Message{
			{Role: "system", Content: personaPrompt + " " + greeting},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// AnswerProductQuestion answers grounded on the matched catalog entries.
func (a *Assistant) AnswerProductQuestion(ctx context.Context, question string, matches []catalog.Product) (string, error) {
	var grounding strings.Builder
	for _, p := range matches {
		grounding.WriteString(catalog.FormatProduct(p))
		grounding.WriteString("\n\n")
	}
	result, err := a.provider.Chat(ctx, Request{
		Model:     a.model,
		MaxTokens: 400,
		Messages: []Message{
			{Role: "system", Content: personaPrompt + "\nAnswer using only the product information below.\n\n" + grounding.String()},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// DiagnoseCrop reviews a crop photo and suggests likely issues and treatment.
func (a *Assistant) DiagnoseCrop(ctx context.Context, imagePath string) (string, error) {
	dataURL, err := imageDataURL(imagePath)
	if err != nil {
		return "", err
	}
	result, err := a.provider.Chat(ctx, Request{
		Model:     a.model,
		MaxTokens: 500,
		Messages: []Message{
			{Role: "system", Content: personaPrompt},
			{
				Role:    "user",
				Content: "Look at this crop photo. Identify the likely problem (disease, pest, or deficiency), its severity, and a practical treatment plan for a smallholder farmer.",
				Images:  []string{dataURL},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// AnalyzeSoil reads a soil test report photo and recommends a fertilizer
// program. crop, when known, focuses the recommendation.
func (a *Assistant) AnalyzeSoil(ctx context.Context, crop, imagePath string) (string, error) {
	dataURL, err := imageDataURL(imagePath)
	if err != nil {
		return "", err
	}
	prompt := "Read this soil analysis report. Summarize the pH and key nutrient levels, then recommend a practical fertilizer program for a smallholder farmer."
	if crop != "" {
		prompt += " The farmer is growing " + crop + "."
	}
	result, err := a.provider.Chat(ctx, Request{
		Model:     a.model,
		MaxTokens: 500,
		Messages: []Message{
			{Role: "system", Content: personaPrompt},
			{
				Role:    "user",
				Content: prompt,
				Images:  []string{dataURL},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// Enhance fills missing receipt fields from the raw OCR text. Implements
// the pipeline's Enhancer stage; the receipt is only updated on success.
func (a *Assistant) Enhance(ctx context.Context, r *verify.Receipt) error {
	temp := float32(0)
	result, err := a.provider.Chat(ctx, Request{
		Model:          a.model,
		Temperature:    &temp,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		Messages: []Message{
			{Role: "system", Content: `Extract purchase receipt fields from raw OCR text.
Respond with JSON: {"retailer_name": "", "invoice_number": "", "purchase_date": "DD/MM/YYYY", "total_amount": "", "currency": "", "products": []}.
Use empty strings for fields you cannot find.`},
			{Role: "user", Content: r.RawText},
		},
	})
	if err != nil {
		return err
	}

	var extracted struct {
		RetailerName  string   `json:"retailer_name"`
		InvoiceNumber string   `json:"invoice_number"`
		PurchaseDate  string   `json:"purchase_date"`
		TotalAmount   string   `json:"total_amount"`
		Currency      string   `json:"currency"`
		Products      []string `json:"products"`
	}
	if err := json.Unmarshal([]byte(removeCodeBlocks(result.Message.Content)), &extracted); err != nil {
		return fmt.Errorf("decode extraction: %w", err)
	}

	// Scraped authority fields win; extraction only fills gaps.
	if r.RetailerName == "" {
		r.RetailerName = strings.TrimSpace(extracted.RetailerName)
	}
	if r.InvoiceNumber == "" {
		r.InvoiceNumber = strings.TrimSpace(extracted.InvoiceNumber)
	}
	if r.PurchaseDate == "" {
		r.PurchaseDate = strings.TrimSpace(extracted.PurchaseDate)
	}
	if r.TotalAmount == "" {
		r.TotalAmount = strings.TrimSpace(extracted.TotalAmount)
	}
	if r.Currency == "" || r.Currency == "USD" {
		if c := strings.TrimSpace(extracted.Currency); c != "" {
			r.Currency = c
		}
	}
	if len(r.Products) == 0 {
		r.Products = extracted.Products
	}
	return nil
}

// VisionOCR reads printed text from photos via a vision-capable model.
// Implements the pipeline's OCR stage.
type VisionOCR struct {
	provider Provider
	model    string
}

// NewVisionOCR creates the OCR client.
func NewVisionOCR(provider Provider, model string) *VisionOCR {
	return &VisionOCR{provider: provider, model: model}
}

// Extract transcribes every piece of text visible in the image.
func (v *VisionOCR) Extract(ctx context.Context, imagePath string) (string, error) {
	dataURL, err := imageDataURL(imagePath)
	if err != nil {
		return "", err
	}
	temp := float32(0)
	result, err := v.provider.Chat(ctx, Request{
		Model:       v.model,
		Temperature: &temp,
		Messages: []Message{
			{
				Role:    "user",
				Content: "Transcribe all text on this receipt exactly as printed, one line per receipt line. Output the text only.",
				Images:  []string{dataURL},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := "image/jpeg"
	if strings.HasSuffix(strings.ToLower(path), ".png") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func removeCodeBlocks(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
