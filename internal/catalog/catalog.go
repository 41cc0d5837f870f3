// Package catalog loads the static agronomy datasets the assistant serves
// from: the sponsor product range, authorized retailers, guide library,
// dealer locations, and daily tips.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Product is one item in the sponsor's range.
type Product struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Usage       string `json:"usage,omitempty"`
}

// Retailer is an authorized seller of sponsor products.
type Retailer struct {
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
}

// Guide is a downloadable agronomy guide.
type Guide struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url"`
	Premium bool   `json:"premium"`
}

// Shop is a physical dealer location.
type Shop struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Tip is a scheduled broadcast message.
type Tip struct {
	Text     string `json:"text"`
	SendDate string `json:"send_date"`
}

// Catalog holds every static dataset.
type Catalog struct {
	Products  []Product
	Retailers []Retailer
	Guides    []Guide
	Shops     []Shop
	Tips      []Tip
	logger    *slog.Logger
}

// Load reads the catalog files under dir. Missing files yield empty sets so
// the assistant still runs with partial data.
func Load(log *slog.Logger, dir string) (*Catalog, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Catalog{logger: log.With(slog.String("service", "catalog"))}
	loadJSON(c.logger, filepath.Join(dir, "products.json"), &c.Products)
	loadJSON(c.logger, filepath.Join(dir, "retailers.json"), &c.Retailers)
	loadJSON(c.logger, filepath.Join(dir, "guides.json"), &c.Guides)
	loadJSON(c.logger, filepath.Join(dir, "shops.json"), &c.Shops)
	loadJSON(c.logger, filepath.Join(dir, "tips.json"), &c.Tips)
	c.logger.Info("catalog loaded",
		slog.Int("products", len(c.Products)),
		slog.Int("retailers", len(c.Retailers)),
		slog.Int("guides", len(c.Guides)),
		slog.Int("shops", len(c.Shops)),
	)
	return c, nil
}

func loadJSON(log *slog.Logger, path string, out any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("read catalog file", slog.String("file", path), slog.String("error", err.Error()))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn("decode catalog file", slog.String("file", path), slog.String("error", err.Error()))
	}
}

// SearchProducts returns products whose name, category, or description
// contains the query, case-insensitive.
func (c *Catalog) SearchProducts(query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Product
	for _, p := range c.Products {
		haystack := strings.ToLower(p.Name + " " + p.Category + " " + p.Description)
		if strings.Contains(haystack, q) {
			out = append(out, p)
		}
	}
	return out
}

// MatchProducts returns sponsor products mentioned in the given lines.
// Matching is a case-insensitive substring test in both directions, which
// tolerates OCR noise around the product name.
func (c *Catalog) MatchProducts(lines []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, line := range lines {
		l := strings.ToLower(strings.TrimSpace(line))
		if l == "" {
			continue
		}
		for _, p := range c.Products {
			name := strings.ToLower(p.Name)
			if name == "" || seen[p.Name] {
				continue
			}
			if strings.Contains(l, name) || strings.Contains(name, l) {
				seen[p.Name] = true
				out = append(out, p.Name)
			}
		}
	}
	return out
}

// GuidesFor returns the guides visible at the given access level.
func (c *Catalog) GuidesFor(premium bool) []Guide {
	var out []Guide
	for _, g := range c.Guides {
		if g.Premium && !premium {
			continue
		}
		out = append(out, g)
	}
	return out
}

// FormatProduct renders a product for chat display.
func FormatProduct(p Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", p.Name)
	if p.Category != "" {
		fmt.Fprintf(&b, " (%s)", p.Category)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s", p.Description)
	}
	if p.Usage != "" {
		fmt.Fprintf(&b, "\nUsage: %s", p.Usage)
	}
	return b.String()
}

// FormatProductList renders a numbered product listing.
func FormatProductList(products []Product) string {
	if len(products) == 0 {
		return "No matching products found."
	}
	var b strings.Builder
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		if p.Category != "" {
			fmt.Fprintf(&b, " (%s)", p.Category)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatGuideList renders a numbered guide listing.
func FormatGuideList(guides []Guide) string {
	if len(guides) == 0 {
		return "No guides available right now."
	}
	var b strings.Builder
	for i, g := range guides {
		fmt.Fprintf(&b, "%d. %s", i+1, g.Title)
		if g.Summary != "" {
			fmt.Fprintf(&b, " - %s", g.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
