package view

import (
	"math"

	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/selection"
)

// FeatureFill is the map fill of one geometry feature.
type FeatureFill struct {
	Index     int     `json:"index"`
	Area      string  `json:"area,omitempty"`
	Value     float64 `json:"value,omitempty"`
	HasValue  bool    `json:"has_value"`
	Intensity float64 `json:"intensity"`
	NoData    bool    `json:"no_data"`
	Selected  bool    `json:"selected,omitempty"`
}

// Legend describes the map color domain.
type Legend struct {
	Scale   Scale   `json:"scale"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Unit    string  `json:"unit"`
	HasData bool    `json:"has_data"`
}

// Indicator is one KPI of a country profile.
type Indicator struct {
	Element  string  `json:"element"`
	Value    float64 `json:"value"`
	HasValue bool    `json:"has_value"`
	Unit     string  `json:"unit"`
}

// Profile is the country page KPI block.
type Profile struct {
	Area       string      `json:"area"`
	Class      string      `json:"class"`
	Item       string      `json:"item"`
	Year       int         `json:"year"`
	Indicators []Indicator `json:"indicators"`
}

// ElementSeries is one sparkline of the country page.
type ElementSeries struct {
	Element string  `json:"element"`
	Unit    string  `json:"unit"`
	Points  []Point `json:"points"`
}

var fallbackUnits = map[selection.Element]string{
	selection.Production:    "t",
	selection.AreaHarvested: "ha",
	selection.Yield:         "kg/ha",
}

func (p *Projector) countryValues(st selection.State) []float64 {
	el := st.Element.Label()
	var vals []float64
	for _, area := range p.cls.AreasOf(entity.Country) {
		if v, ok := p.src.Lookup(area, st.Item, el, st.Year); ok {
			vals = append(vals, v)
		}
	}
	return vals
}

// Legend returns the map domain for the selected slice over country values.
func (p *Projector) Legend(st selection.State) Legend {
	vals := p.countryValues(st)
	lo, hi, ok := extent(vals)
	return Legend{
		Scale:   ColorScale(st.Scale, vals),
		Min:     lo,
		Max:     hi,
		Unit:    p.src.UnitFor(st.Item, st.Element.Label()),
		HasData: ok,
	}
}

// MapFills resolves every feature to an area and colors it. Values come from
// the area name, falling back to the feature's identifier when the resolved
// name has no data.
func (p *Projector) MapFills(st selection.State, features []entity.Feature) []FeatureFill {
	scale := ColorScale(st.Scale, p.countryValues(st))
	el := st.Element.Label()

	out := make([]FeatureFill, 0, len(features))
	for i, f := range features {
		fill := FeatureFill{Index: i}
		area, ok := p.cls.ResolveGeometryFeature(f)
		if ok {
			fill.Area = area
			fill.Selected = st.IsSelected(area)
			fill.Value, fill.HasValue = p.src.Lookup(area, st.Item, el, st.Year)
		}
		if !fill.HasValue {
			if id, ok := f.GeoID(); ok {
				fill.Value, fill.HasValue = p.src.LookupByGeo(id, st.Item, el, st.Year)
			}
		}
		v := math.NaN()
		if fill.HasValue {
			v = fill.Value
		}
		fill.Intensity, ok = scale.At(v)
		fill.NoData = !ok
		out = append(out, fill)
	}
	return out
}

// CountryProfile returns production, area harvested and yield for the area
// at the selected item and year.
func (p *Projector) CountryProfile(st selection.State, area string) Profile {
	prof := Profile{
		Area:  area,
		Class: p.cls.Classify(area).String(),
		Item:  st.Item,
		Year:  st.Year,
	}
	for _, e := range selection.Elements {
		ind := Indicator{Element: e.Label(), Unit: p.unit(st.Item, e)}
		ind.Value, ind.HasValue = p.src.Lookup(area, st.Item, e.Label(), st.Year)
		prof.Indicators = append(prof.Indicators, ind)
	}
	return prof
}

// ElementSeries returns one time series per element for the area and item.
func (p *Projector) ElementSeries(st selection.State, area string) []ElementSeries {
	out := make([]ElementSeries, 0, len(selection.Elements))
	for _, e := range selection.Elements {
		out = append(out, ElementSeries{
			Element: e.Label(),
			Unit:    p.unit(st.Item, e),
			Points:  p.series(area, st.Item, e.Label()),
		})
	}
	return out
}

func (p *Projector) unit(item string, e selection.Element) string {
	if u := p.src.UnitFor(item, e.Label()); u != "" {
		return u
	}
	return fallbackUnits[e]
}
