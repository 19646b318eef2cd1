// Package view computes the render-ready row sets behind each display from
// the record store, the entity resolver and a selection snapshot. Nothing in
// this package mutates its inputs or returns an error: sparse slices yield
// empty results.
package view

import (
	"math"
	"sort"

	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/record"
	"github.com/sells-group/crop-explorer/internal/selection"
)

// Source is the read side of the record store.
type Source interface {
	Lookup(area, item, element string, year int) (float64, bool)
	LookupByGeo(geoID, item, element string, year int) (float64, bool)
	UnitFor(item, element string) string
	AllItems() []string
	Years() []int
}

// Classifier is the read side of the entity resolver.
type Classifier interface {
	Classify(area string) entity.Class
	AreasOf(class entity.Class) []string
	ResolveGeometryFeature(f entity.Feature) (string, bool)
	Policy() entity.Policy
}

// Ranked is one bar of a ranking.
type Ranked struct {
	Area  string  `json:"area"`
	Value float64 `json:"value"`
}

// Triplet is one scatter point.
type Triplet struct {
	Area          string  `json:"area"`
	AreaHarvested float64 `json:"area_harvested"`
	Yield         float64 `json:"yield"`
	Production    float64 `json:"production"`
}

// Point is one time-series sample.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// ItemValue is one bar of a cross-item breakdown.
type ItemValue struct {
	Item  string  `json:"item"`
	Value float64 `json:"value"`
}

// Projector answers view queries.
type Projector struct {
	src Source
	cls Classifier
}

// New returns a projector over src and cls.
func New(src Source, cls Classifier) *Projector {
	return &Projector{src: src, cls: cls}
}

// TopRanked returns the areas of one class with a value at the selected
// slice, descending by value with ties broken by ascending name, truncated
// to TopN.
func (p *Projector) TopRanked(st selection.State, class entity.Class) []Ranked {
	el := st.Element.Label()
	rows := []Ranked{}
	for _, area := range p.cls.AreasOf(class) {
		if v, ok := p.src.Lookup(area, st.Item, el, st.Year); ok {
			rows = append(rows, Ranked{Area: area, Value: v})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Area < rows[j].Area
	})
	n := max(st.TopN, 0)
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// ScatterTriplets returns every country with strictly positive area
// harvested, yield and production for the selected item and year. Areas
// missing any of the three are left out, since the scatter uses log axes.
func (p *Projector) ScatterTriplets(st selection.State) []Triplet {
	out := []Triplet{}
	for _, area := range p.cls.AreasOf(entity.Country) {
		a, okA := p.src.Lookup(area, st.Item, record.ElementAreaHarvested, st.Year)
		y, okY := p.src.Lookup(area, st.Item, record.ElementYield, st.Year)
		pr, okP := p.src.Lookup(area, st.Item, record.ElementProduction, st.Year)
		if !okA || !okY || !okP || a <= 0 || y <= 0 || pr <= 0 {
			continue
		}
		out = append(out, Triplet{Area: area, AreaHarvested: a, Yield: y, Production: pr})
	}
	return out
}

// TimeSeries returns the selected item and element for one area across the
// observed year range. Gaps are omitted.
func (p *Projector) TimeSeries(st selection.State, area string) []Point {
	return p.series(area, st.Item, st.Element.Label())
}

func (p *Projector) series(area, item, element string) []Point {
	out := []Point{}
	for _, y := range p.src.Years() {
		if v, ok := p.src.Lookup(area, item, element, y); ok {
			out = append(out, Point{Year: y, Value: v})
		}
	}
	return out
}

// MultiTimeSeries computes TimeSeries per area. Areas without points map to
// an empty series.
func (p *Projector) MultiTimeSeries(st selection.State, areas []string) map[string][]Point {
	out := make(map[string][]Point, len(areas))
	for _, a := range areas {
		out[a] = p.TimeSeries(st, a)
	}
	return out
}

// CrossItemBreakdown returns one value per catalog item for the area at the
// selected element and year, descending by value.
func (p *Projector) CrossItemBreakdown(st selection.State, area string) []ItemValue {
	el := st.Element.Label()
	out := []ItemValue{}
	for _, it := range p.src.AllItems() {
		if v, ok := p.src.Lookup(area, it, el, st.Year); ok {
			out = append(out, ItemValue{Item: it, Value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Item < out[j].Item
	})
	return out
}

// WorldAggregate returns the explicit world row when it is present and
// positive, otherwise the sum of positive country values. A slice with
// neither yields false.
func (p *Projector) WorldAggregate(item, element string, year int) (float64, bool) {
	if v, ok := p.src.Lookup(p.cls.Policy().WorldName, item, element, year); ok && v > 0 {
		return v, true
	}
	var sum float64
	var n int
	for _, area := range p.cls.AreasOf(entity.Country) {
		if v, ok := p.src.Lookup(area, item, element, year); ok && v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum, true
}

// ShareOfWorldByItem returns, per item, the area's value as a percentage of
// that item's own world aggregate. Items where the area has no value are
// omitted; a missing or zero denominator yields 0.
func (p *Projector) ShareOfWorldByItem(area, element string, year int) map[string]float64 {
	out := make(map[string]float64)
	for _, it := range p.src.AllItems() {
		v, ok := p.src.Lookup(area, it, element, year)
		if !ok {
			continue
		}
		world, ok := p.WorldAggregate(it, element, year)
		if !ok || world == 0 {
			out[it] = 0
			continue
		}
		share := v / world * 100
		if math.IsNaN(share) || math.IsInf(share, 0) {
			share = 0
		}
		out[it] = share
	}
	return out
}
