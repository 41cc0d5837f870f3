// Package shops finds the dealers closest to a farmer's shared location.
package shops

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ucfagri/sambot/internal/catalog"
)

const earthRadiusKm = 6371

// Nearby is a dealer with its distance from the query point.
type Nearby struct {
	Shop       catalog.Shop
	DistanceKm float64
}

// DistanceText renders the distance for chat display, in meters under 1 km.
func (n Nearby) DistanceText() string {
	if n.DistanceKm < 1 {
		return fmt.Sprintf("%.0f m", n.DistanceKm*1000)
	}
	return fmt.Sprintf("%.1f km", n.DistanceKm)
}

// MapsLink returns a Google Maps pin for the shop.
func (n Nearby) MapsLink() string {
	return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", n.Shop.Latitude, n.Shop.Longitude)
}

// Distance computes the great-circle distance between two points in km.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Nearest returns up to limit shops ordered by distance from the point.
func Nearest(all []catalog.Shop, lat, lng float64, limit int) []Nearby {
	if limit <= 0 {
		limit = 3
	}
	nearby := make([]Nearby, 0, len(all))
	for _, s := range all {
		nearby = append(nearby, Nearby{
			Shop:       s,
			DistanceKm: Distance(lat, lng, s.Latitude, s.Longitude),
		})
	}
	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby
}

// FormatMessage renders the nearest dealers as a chat message.
func FormatMessage(nearby []Nearby) string {
	if len(nearby) == 0 {
		return "Sorry, I could not find any UCF dealers near you yet."
	}
	var b strings.Builder
	b.WriteString("🏪 Nearest UCF dealers:\n\n")
	for i, n := range nearby {
		fmt.Fprintf(&b, "%d. *%s* (%s)\n", i+1, n.Shop.Name, n.DistanceText())
		if n.Shop.Address != "" {
			fmt.Fprintf(&b, "   %s\n", n.Shop.Address)
		}
		if n.Shop.Phone != "" {
			fmt.Fprintf(&b, "   📞 %s\n", n.Shop.Phone)
		}
		fmt.Fprintf(&b, "   %s\n\n", n.MapsLink())
	}
	return strings.TrimRight(b.String(), "\n")
}
