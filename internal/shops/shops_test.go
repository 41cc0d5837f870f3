package shops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/catalog"
	"github.com/ucfagri/sambot/internal/shops"
)

var testShops = []catalog.Shop{
	{Name: "Harare CBD", Latitude: -17.8292, Longitude: 31.0522},
	{Name: "Chitungwiza", Latitude: -18.0127, Longitude: 31.0756},
	{Name: "Bulawayo", Latitude: -20.1325, Longitude: 28.6265},
	{Name: "Mutare", Latitude: -18.9707, Longitude: 32.6709},
}

func TestDistanceHarareToBulawayo(t *testing.T) {
	// Straight-line distance is roughly 365 km.
	d := shops.Distance(-17.8292, 31.0522, -20.1325, 28.6265)
	assert.InDelta(t, 365, d, 15)
}

func TestNearestOrdersByDistanceAndLimits(t *testing.T) {
	// Query point in central Harare.
	nearby := shops.Nearest(testShops, -17.83, 31.05, 3)
	require.Len(t, nearby, 3)
	assert.Equal(t, "Harare CBD", nearby[0].Shop.Name)
	assert.Equal(t, "Chitungwiza", nearby[1].Shop.Name)
	assert.True(t, nearby[0].DistanceKm < nearby[1].DistanceKm)
}

func TestDistanceTextUsesMetersUnderOneKm(t *testing.T) {
	assert.Equal(t, "500 m", shops.Nearby{DistanceKm: 0.5}.DistanceText())
	assert.Equal(t, "2.3 km", shops.Nearby{DistanceKm: 2.34}.DistanceText())
}

func TestFormatMessageEmpty(t *testing.T) {
	msg := shops.FormatMessage(nil)
	assert.Contains(t, msg, "could not find")
}
