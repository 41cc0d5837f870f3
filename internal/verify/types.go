package verify

// Source records which stage produced the receipt's fields.
type Source string

const (
	SourceQR  Source = "qr"
	SourceOCR Source = "ocr"
)

// Outcome is the pipeline's verdict on a submitted document.
type Outcome string

const (
	// OutcomeVerified means every stage passed; the document may earn an
	// entitlement once the anti-replay check clears.
	OutcomeVerified Outcome = "verified"
	// OutcomePending means the document could not be verified automatically
	// and waits for manual review.
	OutcomePending Outcome = "pending"
	// OutcomeRejected means the document failed a hard gate.
	OutcomeRejected Outcome = "rejected"
)

// Reason classifies why a document did not verify.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonQRRequired    Reason = "qr_required"
	ReasonInvalid       Reason = "validation_failed"
	ReasonNoSponsorItem Reason = "sponsor_keyword_missing"
	ReasonUnreadable    Reason = "unreadable"
)

// Receipt holds everything extracted from one submitted document.
type Receipt struct {
	Source           Source   `json:"source"`
	InvoiceNumber    string   `json:"invoice_number,omitempty"`
	TaxpayerName     string   `json:"taxpayer_name,omitempty"`
	TradeName        string   `json:"trade_name,omitempty"`
	RetailerName     string   `json:"retailer_name,omitempty"`
	Address          string   `json:"address,omitempty"`
	PurchaseDate     string   `json:"purchase_date,omitempty"`
	TotalAmount      string   `json:"total_amount,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	Products         []string `json:"products,omitempty"`
	AuthorityValid   bool     `json:"authority_valid"`
	QRURL            string   `json:"qr_url,omitempty"`
	RawText          string   `json:"raw_text,omitempty"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
}

// Result is the pipeline output for one document.
type Result struct {
	Receipt Receipt
	Outcome Outcome
	Reason  Reason
	Errors  []string
}
