package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/catalog"
)

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	writeCatalog(t, dir, "products.json", `[
		{"name": "Compound D", "category": "Basal fertilizer"},
		{"name": "Ammonium Nitrate", "category": "Top dressing"},
		{"name": "UCF Super Grow", "category": "Foliar feed", "description": "for maize and wheat"}
	]`)
	writeCatalog(t, dir, "guides.json", `[
		{"title": "Maize Planting Guide", "url": "https://g/1", "premium": false},
		{"title": "Advanced Soil Health", "url": "https://g/2", "premium": true}
	]`)
	c, err := catalog.Load(nil, dir)
	require.NoError(t, err)
	return c
}

func TestLoadMissingDirYieldsEmptyCatalog(t *testing.T) {
	c, err := catalog.Load(nil, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, c.Products)
	assert.Empty(t, c.Retailers)
}

func TestSearchProducts(t *testing.T) {
	c := loadTestCatalog(t)

	assert.Len(t, c.SearchProducts("maize"), 1)
	assert.Len(t, c.SearchProducts("Compound"), 1)
	assert.Empty(t, c.SearchProducts(""))
	assert.Empty(t, c.SearchProducts("tobacco"))
}

func TestMatchProductsTolersOCRNoise(t *testing.T) {
	c := loadTestCatalog(t)

	matched := c.MatchProducts([]string{
		"2x COMPOUND D 50KG",
		"cashier: thanks",
		"ammonium nitrate",
	})
	assert.ElementsMatch(t, []string{"Compound D", "Ammonium Nitrate"}, matched)
}

func TestGuidesForGatesPremium(t *testing.T) {
	c := loadTestCatalog(t)

	assert.Len(t, c.GuidesFor(false), 1)
	assert.Len(t, c.GuidesFor(true), 2)
}
