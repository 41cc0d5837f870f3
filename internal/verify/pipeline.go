package verify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ucfagri/sambot/internal/catalog"
)

// OCRClient extracts printed text from a receipt photo.
type OCRClient interface {
	Extract(ctx context.Context, imagePath string) (string, error)
}

// AuthorityLookup resolves a receipt QR URL against the fiscal authority.
type AuthorityLookup interface {
	Lookup(ctx context.Context, url string) (AuthorityResult, error)
}

// Enhancer fills missing receipt fields from the raw text, typically via an
// AI extraction call. Failures must leave the receipt untouched.
type Enhancer interface {
	Enhance(ctx context.Context, r *Receipt) error
}

// Options configures a verification pipeline.
type Options struct {
	AuthorityHost  string
	SponsorKeyword string
	Rules          Rules
}

// Pipeline runs a submitted receipt photo through decode, lookup, OCR,
// validation, and the sponsor brand gate.
type Pipeline struct {
	qr        QRDecoder
	authority AuthorityLookup
	ocr       OCRClient
	enhancer  Enhancer
	catalog   *catalog.Catalog
	opts      Options
	logger    *slog.Logger
}

// NewPipeline wires the pipeline stages. ocr and enhancer may be nil.
func NewPipeline(log *slog.Logger, qr QRDecoder, authority AuthorityLookup, ocr OCRClient, enhancer Enhancer, cat *catalog.Catalog, opts Options) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if opts.SponsorKeyword == "" {
		opts.SponsorKeyword = "UCF"
	}
	return &Pipeline{
		qr:        qr,
		authority: authority,
		ocr:       ocr,
		enhancer:  enhancer,
		catalog:   cat,
		opts:      opts,
		logger:    log.With(slog.String("service", "verify")),
	}
}

var productLinePattern = regexp.MustCompile(`(?im)(?:product|item)[:\s]+(.+)$`)

// Process runs every stage on the staged image and returns the verdict.
// The receipt in the result is populated as far as the stages got,
// whatever the outcome.
func (p *Pipeline) Process(ctx context.Context, imagePath string) Result {
	receipt := Receipt{Currency: "USD"}

	// Stage 1: QR decode.
	qrURL, err := p.qr.Decode(imagePath)
	if err != nil {
		p.logger.Warn("qr decode", slog.String("error", err.Error()))
	}
	receipt.QRURL = strings.TrimSpace(qrURL)

	// Stage 2: authority lookup for recognized QR payloads.
	fromAuthority := false
	if receipt.QRURL != "" && strings.Contains(receipt.QRURL, p.opts.AuthorityHost) {
		res, err := p.authority.Lookup(ctx, receipt.QRURL)
		if err != nil {
			p.logger.Warn("authority lookup", slog.String("error", err.Error()))
			receipt.ValidationErrors = append(receipt.ValidationErrors, "QR processing failed: "+err.Error())
		} else {
			fromAuthority = true
			receipt.Source = SourceQR
			receipt.TaxpayerName = res.TaxpayerName
			receipt.TradeName = res.TradeName
			receipt.RetailerName = res.RetailerName()
			receipt.Address = res.Address
			receipt.InvoiceNumber = res.InvoiceNumber
			receipt.PurchaseDate = res.InvoiceDate
			receipt.TotalAmount = res.TotalAmount
			receipt.AuthorityValid = res.Valid
			if res.Currency != "" {
				receipt.Currency = res.Currency
			}
		}
	}

	// Stage 3: OCR. Always runs when configured; it is the only source of
	// the raw text the brand gate inspects.
	var rawText string
	if p.ocr != nil {
		rawText, err = p.ocr.Extract(ctx, imagePath)
		if err != nil {
			p.logger.Warn("ocr extract", slog.String("error", err.Error()))
		}
	}
	receipt.RawText = strings.TrimSpace(rawText)
	if !fromAuthority {
		receipt.Source = SourceOCR
	}
	receipt.Products = p.extractProducts(receipt.RawText)

	if receipt.Source == SourceOCR && len(receipt.RawText) < 10 {
		return Result{
			Receipt: receipt,
			Outcome: OutcomePending,
			Reason:  ReasonUnreadable,
			Errors:  []string{"Could not read any text from the photo"},
		}
	}

	if receipt.QRURL == "" {
		return Result{
			Receipt: receipt,
			Outcome: OutcomePending,
			Reason:  ReasonQRRequired,
		}
	}

	// Stage 4: enrichment, best-effort.
	if p.enhancer != nil {
		if err := p.enhancer.Enhance(ctx, &receipt); err != nil {
			p.logger.Warn("receipt enhancement", slog.String("error", err.Error()))
		}
	}

	// Stage 5: validation rules.
	if errs := Validate(receipt, p.opts.Rules); len(errs) > 0 {
		receipt.ValidationErrors = append(receipt.ValidationErrors, errs...)
		return Result{
			Receipt: receipt,
			Outcome: OutcomePending,
			Reason:  ReasonInvalid,
			Errors:  errs,
		}
	}

	// Brand gate: the purchase must include sponsor goods.
	if !strings.Contains(strings.ToUpper(receipt.RawText), strings.ToUpper(p.opts.SponsorKeyword)) {
		return Result{
			Receipt: receipt,
			Outcome: OutcomeRejected,
			Reason:  ReasonNoSponsorItem,
			Errors:  []string{"No " + p.opts.SponsorKeyword + " products found on the receipt"},
		}
	}

	return Result{Receipt: receipt, Outcome: OutcomeVerified}
}

func (p *Pipeline) extractProducts(rawText string) []string {
	if rawText == "" {
		return nil
	}
	var lines []string
	for _, match := range productLinePattern.FindAllStringSubmatch(rawText, -1) {
		lines = append(lines, strings.TrimSpace(match[1]))
	}
	lines = append(lines, strings.Split(rawText, "\n")...)
	if p.catalog == nil {
		return nil
	}
	return p.catalog.MatchProducts(lines)
}
