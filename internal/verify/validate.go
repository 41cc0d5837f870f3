package verify

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ucfagri/sambot/internal/catalog"
)

// Rules configures receipt validation.
type Rules struct {
	MaxAgeMonths int
	Retailers    []catalog.Retailer

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

// Validate checks a receipt against the acceptance rules and returns every
// violation as a user-presentable message.
func Validate(r Receipt, rules Rules) []string {
	now := time.Now
	if rules.Now != nil {
		now = rules.Now
	}
	months := rules.MaxAgeMonths
	if months <= 0 {
		months = 3
	}

	var errs []string
	if r.Source == SourceQR && !r.AuthorityValid {
		errs = append(errs, "Invoice is not valid according to ZIMRA")
	}
	if date, ok := ParsePurchaseDate(r.PurchaseDate); ok {
		if date.Before(now().AddDate(0, -months, 0)) {
			errs = append(errs, fmt.Sprintf("Invoice is older than %d months", months))
		}
	}
	if strings.TrimSpace(r.InvoiceNumber) == "" {
		errs = append(errs, "Invoice number not found")
	}
	if strings.TrimSpace(r.RetailerName) == "" && strings.TrimSpace(r.TaxpayerName) == "" {
		errs = append(errs, "Retailer name not found")
	} else if !retailerAuthorized(r, rules.Retailers) {
		errs = append(errs, "Retailer not in authorized list")
	}
	return errs
}

var datePattern = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)

// ParsePurchaseDate extracts a DD/MM/YYYY date from the printed value,
// ignoring any trailing time component.
func ParsePurchaseDate(value string) (time.Time, bool) {
	match := datePattern.FindStringSubmatch(value)
	if match == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("02/01/2006", match[0])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// retailerAuthorized matches the receipt's seller names against the
// authorized list, case-insensitive, substring in both directions. OCR and
// registry spellings rarely agree exactly.
func retailerAuthorized(r Receipt, retailers []catalog.Retailer) bool {
	candidates := []string{r.RetailerName, r.TradeName, r.TaxpayerName}
	for _, candidate := range candidates {
		c := strings.ToLower(strings.TrimSpace(candidate))
		if c == "" {
			continue
		}
		for _, retailer := range retailers {
			for _, known := range []string{retailer.Name, retailer.FullName} {
				k := strings.ToLower(strings.TrimSpace(known))
				if k == "" {
					continue
				}
				if strings.Contains(c, k) || strings.Contains(k, c) {
					return true
				}
			}
		}
	}
	return false
}
