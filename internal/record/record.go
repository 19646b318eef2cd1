// Package record indexes flat crop statistics rows into constant-time lookup paths.
package record

import (
	"math"
	"strconv"
	"strings"
)

// Element labels as they appear in the dataset.
const (
	ElementProduction    = "Production"
	ElementAreaHarvested = "Area harvested"
	ElementYield         = "Yield"
)

// RawRow is one undecoded dataset row.
type RawRow struct {
	Area     string
	AreaCode string
	Item     string
	Element  string
	Unit     string
	Year     string
	Value    string
}

// Record is one decoded observation. Missing or non-numeric years and values
// are carried as HasYear/HasValue == false, never as NaN.
type Record struct {
	Area     string
	GeoID    string
	HasGeoID bool
	Item     string
	Element  string
	Unit     string
	Year     int
	HasYear  bool
	Value    float64
	HasValue bool
}

// Parse decodes a raw row with numeric coercion of year and value.
func Parse(raw RawRow) Record {
	r := Record{
		Area:    strings.TrimSpace(raw.Area),
		Item:    strings.TrimSpace(raw.Item),
		Element: strings.TrimSpace(raw.Element),
		Unit:    strings.TrimSpace(raw.Unit),
	}
	r.GeoID, r.HasGeoID = CanonicalGeoID(raw.AreaCode)
	r.Year, r.HasYear = parseYear(raw.Year)
	r.Value, r.HasValue = parseValue(raw.Value)
	return r
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	// Spreadsheet exports sometimes render years as "1980.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
