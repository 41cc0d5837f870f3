package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/catalog"
)

type stubQR struct {
	payload string
	err     error
}

func (s stubQR) Decode(string) (string, error) { return s.payload, s.err }

type stubAuthority struct {
	result AuthorityResult
	err    error
	calls  int
}

func (s *stubAuthority) Lookup(context.Context, string) (AuthorityResult, error) {
	s.calls++
	return s.result, s.err
}

type stubOCR struct {
	text string
	err  error
}

func (s stubOCR) Extract(context.Context, string) (string, error) { return s.text, s.err }

type stubEnhancer struct {
	fn func(*Receipt)
}

func (s stubEnhancer) Enhance(_ context.Context, r *Receipt) error {
	if s.fn != nil {
		s.fn(r)
	}
	return nil
}

func testOptions() Options {
	return Options{
		AuthorityHost:  "zimra.co.zw",
		SponsorKeyword: "UCF",
		Rules: Rules{
			MaxAgeMonths: 3,
			Retailers:    []catalog.Retailer{{Name: "Farm and City"}},
			Now: func() time.Time {
				return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
			},
		},
	}
}

func validAuthorityResult() AuthorityResult {
	return AuthorityResult{
		TradeName:     "Farm and City",
		InvoiceNumber: "INV-1",
		InvoiceDate:   "15/05/2025 10:00:00",
		TotalAmount:   "84.50",
		Currency:      "USD",
		Valid:         true,
	}
}

func newTestPipeline(qr QRDecoder, auth AuthorityLookup, ocr OCRClient, enh Enhancer) *Pipeline {
	return NewPipeline(nil, qr, auth, ocr, enh, nil, testOptions())
}

func TestProcessVerifiedReceipt(t *testing.T) {
	auth := &stubAuthority{result: validAuthorityResult()}
	p := newTestPipeline(
		stubQR{payload: "https://fdms.zimra.co.zw/invoice?id=1"},
		auth,
		stubOCR{text: "FARM AND CITY\n2x UCF Super Grow 5L\nTOTAL 84.50"},
		nil,
	)

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, OutcomeVerified, res.Outcome)
	assert.Equal(t, SourceQR, res.Receipt.Source)
	assert.Equal(t, "Farm and City", res.Receipt.RetailerName)
	assert.Equal(t, 1, auth.calls)
}

func TestProcessNoQRGoesPending(t *testing.T) {
	p := newTestPipeline(
		stubQR{payload: ""},
		&stubAuthority{},
		stubOCR{text: "FARM AND CITY receipt with UCF items and more text"},
		nil,
	)

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, ReasonQRRequired, res.Reason)
	assert.Equal(t, SourceOCR, res.Receipt.Source)
}

func TestProcessUnreadablePhoto(t *testing.T) {
	p := newTestPipeline(stubQR{}, &stubAuthority{}, stubOCR{text: "x"}, nil)

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, ReasonUnreadable, res.Reason)
}

func TestProcessValidationFailureGoesPending(t *testing.T) {
	result := validAuthorityResult()
	result.Valid = false
	p := newTestPipeline(
		stubQR{payload: "https://fdms.zimra.co.zw/invoice?id=1"},
		&stubAuthority{result: result},
		stubOCR{text: "FARM AND CITY 2x UCF Super Grow"},
		nil,
	)

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, ReasonInvalid, res.Reason)
	assert.Contains(t, res.Errors, "Invoice is not valid according to ZIMRA")
}

func TestProcessMissingSponsorKeywordRejected(t *testing.T) {
	p := newTestPipeline(
		stubQR{payload: "https://fdms.zimra.co.zw/invoice?id=1"},
		&stubAuthority{result: validAuthorityResult()},
		stubOCR{text: "FARM AND CITY\n2x generic fertilizer 50kg\nTOTAL 84.50"},
		nil,
	)

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, ReasonNoSponsorItem, res.Reason)
}

func TestProcessNonAuthorityQRFallsBackToOCR(t *testing.T) {
	auth := &stubAuthority{result: validAuthorityResult()}
	p := newTestPipeline(
		stubQR{payload: "https://example.com/not-fiscal"},
		auth,
		stubOCR{text: "long enough receipt text mentioning UCF products"},
		stubEnhancer{fn: func(r *Receipt) {
			r.InvoiceNumber = "INV-9"
			r.RetailerName = "Farm and City"
			r.PurchaseDate = "20/05/2025"
		}},
	)

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, 0, auth.calls)
	assert.Equal(t, SourceOCR, res.Receipt.Source)
	assert.Equal(t, OutcomeVerified, res.Outcome)
}

func TestProcessAuthorityLookupFailureFallsThrough(t *testing.T) {
	p := newTestPipeline(
		stubQR{payload: "https://fdms.zimra.co.zw/invoice?id=1"},
		&stubAuthority{err: errors.New("connection refused")},
		stubOCR{text: "plenty of receipt text here including UCF Super Grow"},
		stubEnhancer{fn: func(r *Receipt) {
			r.InvoiceNumber = "INV-9"
			r.RetailerName = "Farm and City"
			r.PurchaseDate = "20/05/2025"
		}},
	)

	res := p.Process(context.Background(), "receipt.jpg")
	require.Equal(t, SourceOCR, res.Receipt.Source)
	assert.Equal(t, OutcomeVerified, res.Outcome)
	assert.Contains(t, res.Receipt.ValidationErrors[0], "QR processing failed")
}

func TestProcessMatchesCatalogProducts(t *testing.T) {
	cat := &catalog.Catalog{Products: []catalog.Product{{Name: "UCF Super Grow"}}}
	p := NewPipeline(nil,
		stubQR{payload: "https://fdms.zimra.co.zw/invoice?id=1"},
		&stubAuthority{result: validAuthorityResult()},
		stubOCR{text: "item: UCF Super Grow 5L\nTOTAL 84.50"},
		nil, cat, testOptions())

	res := p.Process(context.Background(), "receipt.jpg")
	assert.Equal(t, OutcomeVerified, res.Outcome)
	assert.Equal(t, []string{"UCF Super Grow"}, res.Receipt.Products)
}
