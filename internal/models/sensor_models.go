package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FeedResponse is the body returned by the sensor feed's CouchDB view.
// Each row carries one sensor's latest Xively document.
type FeedResponse struct {
	TotalRows int       `json:"total_rows"`
	Offset    int       `json:"offset"`
	Rows      []FeedRow `json:"rows"`
}

type FeedRow struct {
	ID    string     `json:"id"`
	Value FeedSensor `json:"value"`
}

type FeedSensor struct {
	Title       string       `json:"title,omitempty"`
	Location    FeedLocation `json:"location"`
	Datastreams []Datastream `json:"datastreams"`
}

type FeedLocation struct {
	Lat FlexFloat `json:"lat"`
	Lon FlexFloat `json:"lon"`
}

// Datastream is a single measured channel of a sensor, e.g. the river level
// "R1_RIVR" or its flood threshold "R1_RIVR_threshold".
type Datastream struct {
	ID         string      `json:"id"`
	Datapoints []Datapoint `json:"datapoints"`
}

type Datapoint struct {
	At    string    `json:"at,omitempty"`
	Value FlexFloat `json:"value"`
}

// FlexFloat decodes a JSON number or a string holding a number.
// Xively publishes datapoint values as strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("expected a number, got null")
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Reading is one heat-map point. Value is the river level divided by its
// flood threshold, so 1.0 means "at threshold".
type Reading struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
	Cell  string  `json:"cell,omitempty"`
}
