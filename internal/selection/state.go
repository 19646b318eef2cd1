// Package selection holds the mutable view parameters shared by every display.
package selection

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-explorer/internal/record"
)

// Element is a measured indicator.
type Element int

// Elements.
const (
	Production Element = iota
	AreaHarvested
	Yield
)

// Elements lists every element in display order.
var Elements = []Element{Production, AreaHarvested, Yield}

// Label returns the dataset label of the element.
func (e Element) Label() string {
	switch e {
	case AreaHarvested:
		return record.ElementAreaHarvested
	case Yield:
		return record.ElementYield
	default:
		return record.ElementProduction
	}
}

func (e Element) String() string { return e.Label() }

// ParseElement accepts a dataset label or a short alias, case-insensitively.
func ParseElement(s string) (Element, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production, nil
	case "area harvested", "area", "area_harvested":
		return AreaHarvested, nil
	case "yield":
		return Yield, nil
	}
	return Production, eris.Errorf("selection: unknown element %q", s)
}

// ScaleMode selects the color-scale transform.
type ScaleMode int

// Scale modes.
const (
	Linear ScaleMode = iota
	Log
)

func (m ScaleMode) String() string {
	if m == Log {
		return "log"
	}
	return "linear"
}

// ParseScaleMode parses "linear" or "log".
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "":
		return Linear, nil
	case "log":
		return Log, nil
	}
	return Linear, eris.Errorf("selection: unknown scale mode %q", s)
}

// YearPolicy decides which end of the year range Reset restores.
type YearPolicy int

// Year policies.
const (
	Latest YearPolicy = iota
	Earliest
)

// ParseYearPolicy parses "latest" or "earliest".
func ParseYearPolicy(s string) (YearPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latest", "":
		return Latest, nil
	case "earliest":
		return Earliest, nil
	}
	return Latest, eris.Errorf("selection: unknown reset year policy %q", s)
}

// Defaults are the values New and Reset restore.
type Defaults struct {
	Item       string
	MinYear    int
	MaxYear    int
	YearPolicy YearPolicy
	TopN       int
	Capacity   int
}

// DefaultCapacity is the selection bound when Defaults.Capacity is unset.
const DefaultCapacity = 5

// State is the current selection. It is owned by a single goroutine; nothing
// here is synchronized.
type State struct {
	Item     string
	Element  Element
	Year     int
	Scale    ScaleMode
	TopN     int
	Playing  bool
	selected []string

	defaults Defaults
}

// New returns a state initialized to d.
func New(d Defaults) *State {
	if d.Capacity <= 0 {
		d.Capacity = DefaultCapacity
	}
	s := &State{defaults: d}
	s.Reset()
	return s
}

// MinYear returns the lower year bound.
func (s *State) MinYear() int { return s.defaults.MinYear }

// MaxYear returns the upper year bound.
func (s *State) MaxYear() int { return s.defaults.MaxYear }

// Capacity returns the selection bound K.
func (s *State) Capacity() int { return s.defaults.Capacity }

// SetItem replaces the item.
func (s *State) SetItem(item string) { s.Item = item }

// SetElement replaces the element.
func (s *State) SetElement(e Element) { s.Element = e }

// SetYear replaces the year without bounds checks.
func (s *State) SetYear(year int) { s.Year = year }

// SetScaleMode replaces the scale mode.
func (s *State) SetScaleMode(m ScaleMode) { s.Scale = m }

// SetTopN replaces top-N without bounds checks.
func (s *State) SetTopN(n int) { s.TopN = n }

// SetPlaying records whether playback is running.
func (s *State) SetPlaying(p bool) { s.Playing = p }

// Selected returns the selected areas, oldest first.
func (s *State) Selected() []string {
	return append([]string(nil), s.selected...)
}

// IsSelected reports whether area is in the selection.
func (s *State) IsSelected(area string) bool {
	return s.indexOf(area) >= 0
}

// ToggleSelect removes area if present, otherwise appends it. When the
// selection is full the oldest entry is evicted first.
func (s *State) ToggleSelect(area string) {
	if i := s.indexOf(area); i >= 0 {
		s.selected = append(s.selected[:i], s.selected[i+1:]...)
		return
	}
	if len(s.selected) >= s.defaults.Capacity {
		s.selected = append(s.selected[:0], s.selected[len(s.selected)-s.defaults.Capacity+1:]...)
	}
	s.selected = append(s.selected, area)
}

// ClearSelection empties the selection.
func (s *State) ClearSelection() {
	s.selected = nil
}

// AdvanceYear moves the year by direction, wrapping past either bound.
func (s *State) AdvanceYear(direction int) {
	lo, hi := s.defaults.MinYear, s.defaults.MaxYear
	y := s.Year + direction
	switch {
	case y > hi:
		y = lo
	case y < lo:
		y = hi
	}
	s.Year = y
}

// Reset restores the defaults. Playback is left as is; callers stop it.
func (s *State) Reset() {
	d := s.defaults
	s.Item = d.Item
	s.Element = Production
	s.Year = d.MaxYear
	if d.YearPolicy == Earliest {
		s.Year = d.MinYear
	}
	s.Scale = Linear
	s.TopN = d.TopN
	s.selected = nil
}

// Snapshot returns a copy that later transitions do not affect.
func (s *State) Snapshot() State {
	c := *s
	c.selected = s.Selected()
	return c
}

func (s *State) indexOf(area string) int {
	for i, a := range s.selected {
		if a == area {
			return i
		}
	}
	return -1
}
