package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// earthRadiusInKm represents the mean radius of the Earth in kilometres.
//
// This value (6,371 km) is the Earth's volumetric mean radius, which is
// commonly used for spherical approximations of great-circle distance.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInKm = 6371.0

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// MarshalJSON encodes the coordinate as a two element array [lat, lon].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

// LatLng converts the coordinate into an s2.LatLng.
func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

// BoundingBox describes a map viewport by its centre and two opposite corners.
type BoundingBox struct {
	Centre Coordinate `json:"centre"`
	SW     Coordinate `json:"sw"`
	NE     Coordinate `json:"ne"`
}

// Radius returns the radius in km of a circle around the centre that
// reaches both corners.
func (b BoundingBox) Radius() float64 {
	return bestCircleRadius(b.Centre, b.SW, b.NE)
}

// CoveringCap returns the spherical cap around the centre with the box radius.
func (b BoundingBox) CoveringCap() s2.Cap {
	centre := s2.PointFromLatLng(b.Centre.LatLng())
	return s2.CapFromCenterAngle(centre, s1.Angle(b.Radius()/earthRadiusInKm))
}

// Covers checks whether the given latitude and longitude fall inside the covering cap.
func (b BoundingBox) Covers(lat, lon float64) bool {
	return b.CoveringCap().ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}

func parseLatLon(text string) (Coordinate, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return Coordinate{}, newMalformedLatLonError(text, "expected two comma-separated numbers")
	}

	lat, err := parseDegrees(parts[0])
	if err != nil {
		return Coordinate{}, newMalformedLatLonError(text, "latitude "+err.Error())
	}
	lon, err := parseDegrees(parts[1])
	if err != nil {
		return Coordinate{}, newMalformedLatLonError(text, "longitude "+err.Error())
	}

	return Coordinate{Lat: lat, Lon: lon}, nil
}

func parseDegrees(token string) (float64, error) {
	token = strings.TrimSpace(token)
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", token)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", token)
	}
	return v, nil
}

func parseBoundingBox(centre, sw, ne string) (BoundingBox, error) {
	var (
		box BoundingBox
		err error
	)
	if box.Centre, err = parseLatLon(centre); err != nil {
		return BoundingBox{}, err
	}
	if box.SW, err = parseLatLon(sw); err != nil {
		return BoundingBox{}, err
	}
	if box.NE, err = parseLatLon(ne); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

// haversine takes its arguments longitude first.
func haversine(lon1, lat1, lon2, lat2 float64) float64 {
	lon1, lat1 = degreesToRadians(lon1), degreesToRadians(lat1)
	lon2, lat2 = degreesToRadians(lon2), degreesToRadians(lat2)

	dlon := lon2 - lon1
	dlat := lat2 - lat1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	// sqrt(a) can drift just above 1 for antipodal points.
	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))

	return earthRadiusInKm * c
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

func distance(a, b Coordinate) float64 {
	return haversine(a.Lon, a.Lat, b.Lon, b.Lat)
}

func bestCircleRadius(centre, sw, ne Coordinate) float64 {
	return math.Max(distance(centre, sw), distance(centre, ne))
}

// isValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Note: (0,0) is treated as invalid even though it is a real location in the
// Gulf of Guinea. Sensors that have never reported a position publish it.
func isValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}
