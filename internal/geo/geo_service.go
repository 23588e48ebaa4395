package geo

import (
	"maps"
	"slices"
)

// The geo package holds no state, so there is no GeoService struct.
// Everything here is a pure function and safe for concurrent use.

// ParseLatLon converts "lat,lon" text into a Coordinate. Any other shape yields
// a *MalformedLatLonError.
func ParseLatLon(text string) (Coordinate, error) {
	return parseLatLon(text)
}

// ParseBoundingBox parses the three segments of a viewport, stopping at the
// first malformed one.
func ParseBoundingBox(centre, sw, ne string) (BoundingBox, error) {
	return parseBoundingBox(centre, sw, ne)
}

// ParseNamed parses every value of segments, keyed by the same names. Keys are
// visited in sorted order so the reported error is stable.
func ParseNamed(segments map[string]string) (map[string]Coordinate, error) {
	parsed := make(map[string]Coordinate, len(segments))
	for _, name := range slices.Sorted(maps.Keys(segments)) {
		c, err := parseLatLon(segments[name])
		if err != nil {
			return nil, err
		}
		parsed[name] = c
	}
	return parsed, nil
}

// Haversine returns the great-circle distance in km between two points given
// as longitude, latitude pairs in degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	return haversine(lon1, lat1, lon2, lat2)
}

// Distance returns the great-circle distance in km between two coordinates.
func Distance(a, b Coordinate) float64 {
	return distance(a, b)
}

// BestCircleRadius returns the larger of the distances from centre to sw and
// from centre to ne, in km.
func BestCircleRadius(centre, sw, ne Coordinate) float64 {
	return bestCircleRadius(centre, sw, ne)
}

func IsValidLatLon(lat, lon float64) bool {
	return isValidLatLon(lat, lon)
}

// CellID returns the heat-map cell key for a location.
func CellID(lat, lon float64) string {
	return s2CellID(lat, lon, heatmapCellLevel)
}
