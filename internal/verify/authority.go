package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// AuthorityResult holds the fields scraped from the fiscal authority's
// invoice lookup page.
type AuthorityResult struct {
	TaxpayerName  string
	TradeName     string
	Address       string
	InvoiceNumber string
	InvoiceDate   string
	TotalAmount   string
	Currency      string
	Valid         bool
}

// RetailerName returns the display name for the seller, preferring the
// registered trade name.
func (r AuthorityResult) RetailerName() string {
	if strings.TrimSpace(r.TradeName) != "" {
		return strings.TrimSpace(r.TradeName)
	}
	return strings.TrimSpace(r.TaxpayerName)
}

// AuthorityClient scrapes the fiscal authority's public invoice
// verification page. The page has no API; fields sit in label/value pairs.
type AuthorityClient struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewAuthorityClient creates a lookup client with the given timeout.
func NewAuthorityClient(log *slog.Logger, timeout time.Duration, userAgent string) *AuthorityClient {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AuthorityClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     log.With(slog.String("service", "authority")),
	}
}

// Lookup fetches the verification page behind a receipt QR code and
// extracts the invoice fields.
func (c *AuthorityClient) Lookup(ctx context.Context, url string) (AuthorityResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("build lookup request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("fetch invoice page: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return AuthorityResult{}, fmt.Errorf("fetch invoice page: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("read invoice page: %w", err)
	}
	return ParseAuthorityPage(string(body)), nil
}

// ParseAuthorityPage extracts invoice fields from the lookup page HTML.
func ParseAuthorityPage(html string) AuthorityResult {
	result := AuthorityResult{
		TaxpayerName:  extractField(html, "TAXPAYER NAME"),
		TradeName:     extractField(html, "TRADE NAME"),
		Address:       extractField(html, "ADDRESS"),
		InvoiceNumber: extractField(html, "INVOICE NUMBER"),
		InvoiceDate:   extractField(html, "INVOICE DATE AND TIME"),
		TotalAmount:   extractField(html, "INVOICE TOTAL AMOUNT"),
		Currency:      extractField(html, "CURRENCY"),
	}
	if result.Currency == "" {
		result.Currency = "USD"
	}
	result.Valid = strings.Contains(strings.ToLower(html), "invoice is valid")
	return result
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func extractField(html, label string) string {
	pattern := `(?is)<label[^>]*>\s*` + regexp.QuoteMeta(label) + `\s*</label>.*?<div class="result-text"[^>]*>(.*?)</div>`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(html)
	if len(match) < 2 {
		return ""
	}
	value := tagPattern.ReplaceAllString(match[1], " ")
	return strings.Join(strings.Fields(value), " ")
}
