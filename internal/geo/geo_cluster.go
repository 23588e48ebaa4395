package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
)

const heatmapCellLevel = 13 // S2 cell level with roughly 1 km resolution

// s2CellID generates a stable S2-based cell key for a lat/lon.
func s2CellID(lat, lon float64, level int) string {
	ll := s2.LatLngFromDegrees(lat, lon)
	cellID := s2.CellIDFromLatLng(ll).Parent(level)
	return fmt.Sprintf("s2_%d", uint64(cellID))
}
