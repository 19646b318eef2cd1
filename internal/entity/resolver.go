// Package entity reconciles dataset area names with map geometry and tells
// countries apart from continents and statistical aggregates.
package entity

import (
	"strings"

	"github.com/biter777/countries"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/crop-explorer/internal/record"
)

// Class is the classification of an area name.
type Class int

// Area classifications.
const (
	Country Class = iota
	Continent
	OtherAggregate
)

func (c Class) String() string {
	switch c {
	case Country:
		return "country"
	case Continent:
		return "continent"
	default:
		return "aggregate"
	}
}

// Catalog is the part of the record store the resolver reads.
type Catalog interface {
	AllAreas() []string
	GeoIDFor(area string) (string, bool)
	AreaForGeoID(id string) (string, bool)
}

// Feature is a map-geometry feature. Either field may be absent.
type Feature struct {
	Name  *string
	RawID *string
}

// NewFeature builds a feature from optional name and identifier pointers.
func NewFeature(name, rawID *string) Feature {
	return Feature{Name: name, RawID: rawID}
}

func (f Feature) name() (string, bool) {
	if f.Name == nil {
		return "", false
	}
	n := strings.TrimSpace(*f.Name)
	return n, n != ""
}

// GeoID returns the canonical identifier of the feature, if it carries one.
func (f Feature) GeoID() (string, bool) {
	if f.RawID == nil {
		return "", false
	}
	return record.CanonicalGeoID(*f.RawID)
}

// Resolver classifies areas and matches geometry features to dataset areas.
// It is immutable after construction and safe for concurrent reads.
type Resolver struct {
	catalog Catalog
	policy  Policy

	continents map[string]struct{}
	exact      map[string]struct{}
	patterns   []string
	geometry   map[string]struct{}

	byName  map[string]string
	classes map[string]Class
}

// NewResolver precomputes the policy tables and the classification of every
// catalog area. geometryIDs are the raw identifiers carried by map features.
func NewResolver(catalog Catalog, policy Policy, geometryIDs []string) *Resolver {
	r := &Resolver{
		catalog:    catalog,
		policy:     policy,
		continents: make(map[string]struct{}, len(policy.ContinentNames)),
		exact:      make(map[string]struct{}, len(policy.ExactAggregateNames)),
		geometry:   make(map[string]struct{}, len(geometryIDs)),
		byName:     make(map[string]string),
		classes:    make(map[string]Class),
	}
	for _, n := range policy.ContinentNames {
		r.continents[normalize(n)] = struct{}{}
	}
	for _, n := range policy.ExactAggregateNames {
		r.exact[normalize(n)] = struct{}{}
	}
	for _, p := range policy.AggregatePatterns {
		if p = strings.ToLower(normalize(p)); p != "" {
			r.patterns = append(r.patterns, p)
		}
	}
	for _, raw := range geometryIDs {
		if id, ok := record.CanonicalGeoID(raw); ok {
			r.geometry[id] = struct{}{}
		}
	}

	for _, area := range catalog.AllAreas() {
		key := normalize(area)
		if _, seen := r.byName[key]; !seen {
			r.byName[key] = area
		}
	}
	for _, area := range catalog.AllAreas() {
		r.classes[area] = r.classify(area)
	}
	return r
}

// GeometryIDs collects the raw identifiers carried by features.
func GeometryIDs(features []Feature) []string {
	ids := make([]string, 0, len(features))
	for _, f := range features {
		if f.RawID != nil {
			ids = append(ids, *f.RawID)
		}
	}
	return ids
}

// Policy returns the policy the resolver was built with.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Classify returns the classification of an area name. The result depends
// only on the name, its GeoIdentifier and the geometry identifier set.
func (r *Resolver) Classify(area string) Class {
	if c, ok := r.classes[area]; ok {
		return c
	}
	return r.classify(area)
}

func (r *Resolver) classify(area string) Class {
	key := normalize(area)
	if _, ok := r.continents[key]; ok {
		return Continent
	}
	if _, ok := r.exact[key]; ok {
		return OtherAggregate
	}
	lower := strings.ToLower(key)
	for _, p := range r.patterns {
		if strings.Contains(lower, p) {
			return OtherAggregate
		}
	}

	name := area
	if canonical, ok := r.byName[key]; ok {
		name = canonical
	}
	id, ok := r.catalog.GeoIDFor(name)
	if !ok {
		return OtherAggregate
	}
	if _, ok := r.geometry[id]; !ok {
		return OtherAggregate
	}
	n, ok := record.GeoIDNumber(id)
	if !ok {
		return OtherAggregate
	}
	for _, excl := range r.policy.RegionCodeExclusions {
		if excl.Contains(n) {
			return OtherAggregate
		}
	}
	return Country
}

// AreasOf returns the catalog areas of one class in ascending order.
func (r *Resolver) AreasOf(class Class) []string {
	var out []string
	for _, area := range r.catalog.AllAreas() {
		if r.classes[area] == class {
			out = append(out, area)
		}
	}
	return out
}

// ResolveGeometryFeature returns the dataset area a feature stands for:
// exact name match, then identifier match, then the feature's own name.
// A feature without a name falls back to the ISO 3166 name of its numeric
// code, then to the canonical code itself. The returned name may have no
// data behind it.
func (r *Resolver) ResolveGeometryFeature(f Feature) (string, bool) {
	name, hasName := f.name()
	id, hasID := f.GeoID()

	if hasName {
		if area, ok := r.byName[normalize(name)]; ok {
			return area, true
		}
	}
	if hasID {
		if area, ok := r.catalog.AreaForGeoID(id); ok {
			return area, true
		}
	}
	if hasName {
		return name, true
	}
	if hasID {
		if n, ok := record.GeoIDNumber(id); ok {
			if c := countries.ByNumeric(int(n)); c.IsValid() {
				return c.String(), true
			}
		}
		return id, true
	}
	return "", false
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
