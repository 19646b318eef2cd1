package record

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Build failures.
var (
	ErrEmptyDataset = eris.New("record: dataset is empty")
	ErrNoYears      = eris.New("record: no row has a parseable year")
)

type sliceKey struct {
	area    string
	item    string
	element string
	year    int
}

type pairKey struct {
	item    string
	element string
}

type cell struct {
	value float64
	ok    bool
}

// Store owns the decoded records and the lookup indexes derived from them.
// It is read-only after Build.
type Store struct {
	records []Record

	byKey    map[sliceKey]cell
	byGeoKey map[sliceKey]cell
	units    map[pairKey]string

	areas     map[string]struct{}
	items     []string
	years     []int
	areaGeoID map[string]string
	geoIDArea map[string]string

	skipped int
}

// Build decodes rows and populates every index. Duplicate composite keys are
// resolved last-write-wins; units are first-seen-wins per (item, element).
func Build(rows []RawRow) (*Store, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	s := &Store{
		records:   make([]Record, 0, len(rows)),
		byKey:     make(map[sliceKey]cell, len(rows)),
		byGeoKey:  make(map[sliceKey]cell, len(rows)),
		units:     make(map[pairKey]string),
		areas:     make(map[string]struct{}),
		areaGeoID: make(map[string]string),
		geoIDArea: make(map[string]string),
	}

	itemSet := make(map[string]struct{})
	yearSet := make(map[int]struct{})

	for _, raw := range rows {
		r := Parse(raw)
		s.records = append(s.records, r)

		if r.Area != "" {
			s.areas[r.Area] = struct{}{}
		}
		if r.Item != "" {
			itemSet[r.Item] = struct{}{}
		}
		if r.Unit != "" {
			pk := pairKey{item: r.Item, element: r.Element}
			if _, seen := s.units[pk]; !seen {
				s.units[pk] = r.Unit
			}
		}
		if r.HasGeoID && r.Area != "" {
			if _, seen := s.areaGeoID[r.Area]; !seen {
				s.areaGeoID[r.Area] = r.GeoID
			}
			if _, seen := s.geoIDArea[r.GeoID]; !seen {
				s.geoIDArea[r.GeoID] = r.Area
			}
		}

		if !r.HasYear {
			s.skipped++
			continue
		}
		yearSet[r.Year] = struct{}{}

		c := cell{value: r.Value, ok: r.HasValue}
		s.byKey[sliceKey{area: r.Area, item: r.Item, element: r.Element, year: r.Year}] = c
		if r.HasGeoID {
			s.byGeoKey[sliceKey{area: r.GeoID, item: r.Item, element: r.Element, year: r.Year}] = c
		}
	}

	if len(yearSet) == 0 {
		return nil, ErrNoYears
	}

	s.items = make([]string, 0, len(itemSet))
	for it := range itemSet {
		s.items = append(s.items, it)
	}
	sort.Strings(s.items)

	s.years = make([]int, 0, len(yearSet))
	for y := range yearSet {
		s.years = append(s.years, y)
	}
	sort.Ints(s.years)

	return s, nil
}

// Lookup returns the value at (area, item, element, year). A miss is not an error.
func (s *Store) Lookup(area, item, element string, year int) (float64, bool) {
	c, ok := s.byKey[sliceKey{area: area, item: item, element: element, year: year}]
	if !ok || !c.ok {
		return 0, false
	}
	return c.value, true
}

// LookupByGeo is Lookup keyed by canonical GeoIdentifier instead of area name.
func (s *Store) LookupByGeo(geoID, item, element string, year int) (float64, bool) {
	c, ok := s.byGeoKey[sliceKey{area: geoID, item: item, element: element, year: year}]
	if !ok || !c.ok {
		return 0, false
	}
	return c.value, true
}

// UnitFor returns the first-seen unit label for the pair, or "".
func (s *Store) UnitFor(item, element string) string {
	return s.units[pairKey{item: item, element: element}]
}

// AllAreas returns every observed area name in ascending order.
func (s *Store) AllAreas() []string {
	out := make([]string, 0, len(s.areas))
	for a := range s.areas {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// HasArea reports whether the name was observed in the dataset.
func (s *Store) HasArea(area string) bool {
	_, ok := s.areas[area]
	return ok
}

// AllItems returns the item catalog in ascending ordinal order.
func (s *Store) AllItems() []string {
	return append([]string(nil), s.items...)
}

// Years returns the distinct observed years in ascending order.
func (s *Store) Years() []int {
	return append([]int(nil), s.years...)
}

// YearRange returns the minimum and maximum observed year.
func (s *Store) YearRange() (int, int) {
	return s.years[0], s.years[len(s.years)-1]
}

// GeoIDFor returns the first GeoIdentifier observed for an area.
func (s *Store) GeoIDFor(area string) (string, bool) {
	id, ok := s.areaGeoID[area]
	return id, ok
}

// AreaForGeoID returns the first area observed with the identifier.
func (s *Store) AreaForGeoID(id string) (string, bool) {
	a, ok := s.geoIDArea[id]
	return a, ok
}

// Len returns the number of decoded records, including yearless ones.
func (s *Store) Len() int {
	return len(s.records)
}

// Skipped returns how many records were left out of the year-keyed indexes.
func (s *Store) Skipped() int {
	return s.skipped
}
