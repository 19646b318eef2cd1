// Package session runs the dashboard event loop: one goroutine applies each
// event to the selection and re-projects every panel into a Snapshot.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/playback"
	"github.com/sells-group/crop-explorer/internal/selection"
	"github.com/sells-group/crop-explorer/internal/view"
)

var errStaleTick = eris.New("session: tick while paused")

// Catalog validates item and area events.
type Catalog interface {
	AllItems() []string
	HasArea(area string) bool
}

// Options configure a Session.
type Options struct {
	Defaults selection.Defaults
	TopNMin  int
	TopNMax  int
	Interval time.Duration
	// Features are the map geometries; nil omits the map panel.
	Features []entity.Feature
}

// Session owns one selection and its projections. It is not safe for
// concurrent use; drive it from Run or from a single goroutine via Apply.
type Session struct {
	id       string
	state    *selection.State
	proj     *view.Projector
	catalog  Catalog
	items    map[string]struct{}
	renderer Renderer
	player   *playback.Scheduler
	opts     Options
	seq      int
	log      *zap.Logger

	// events is the channel Run drains; playback ticks are posted to it.
	events chan Event
}

// New creates a session at the configured defaults.
func New(proj *view.Projector, catalog Catalog, r Renderer, opts Options) *Session {
	if opts.TopNMin <= 0 {
		opts.TopNMin = 1
	}
	if opts.TopNMax < opts.TopNMin {
		opts.TopNMax = opts.TopNMin
	}

	items := make(map[string]struct{})
	for _, it := range catalog.AllItems() {
		items[it] = struct{}{}
	}

	s := &Session{
		id:       uuid.NewString(),
		state:    selection.New(opts.Defaults),
		proj:     proj,
		catalog:  catalog,
		items:    items,
		renderer: r,
		opts:     opts,
	}
	s.state.SetTopN(s.clampTopN(s.state.TopN))
	s.log = zap.L().With(zap.String("session", s.id))
	s.player = playback.New(opts.Interval, s.postTick)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a copy of the current selection.
func (s *Session) State() selection.State { return s.state.Snapshot() }

// Playing reports whether the playback ticker is running.
func (s *Session) Playing() bool { return s.player.Running() }

// Run renders the initial snapshot, then applies events until ctx is
// cancelled. Playback ticks are posted to events, so the caller must not
// close it. Rejected events are logged and skipped; a render failure ends
// the loop.
func (s *Session) Run(ctx context.Context, events chan Event) error {
	s.events = events
	defer s.player.Stop()

	if err := s.renderer.Render(s.Snapshot("init")); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			snap, err := s.Apply(ctx, ev)
			if errors.Is(err, errStaleTick) {
				continue
			}
			if err != nil {
				s.log.Warn("session: rejected event", zap.Stringer("event", ev.Kind), zap.Error(err))
				continue
			}
			if err := s.renderer.Render(snap); err != nil {
				return err
			}
		}
	}
}

// Apply performs one transition and returns the re-projected snapshot.
// Year and top-N are clamped to their configured ranges; unknown items and
// areas are rejected without changing state.
func (s *Session) Apply(ctx context.Context, ev Event) (Snapshot, error) {
	st := s.state
	switch ev.Kind {
	case SetItem:
		if _, ok := s.items[ev.Item]; !ok {
			return Snapshot{}, eris.Errorf("session: unknown item %q", ev.Item)
		}
		st.SetItem(ev.Item)
	case SetElement:
		st.SetElement(ev.Element)
	case SetYear:
		st.SetYear(clamp(ev.Year, st.MinYear(), st.MaxYear()))
	case SetScale:
		st.SetScaleMode(ev.Scale)
	case SetTopN:
		st.SetTopN(s.clampTopN(ev.TopN))
	case ToggleSelect:
		if !s.catalog.HasArea(ev.Area) {
			return Snapshot{}, eris.Errorf("session: unknown area %q", ev.Area)
		}
		st.ToggleSelect(ev.Area)
	case ClearSelection:
		st.ClearSelection()
	case Step:
		if ev.Delta != 1 && ev.Delta != -1 {
			return Snapshot{}, eris.Errorf("session: step must be +1 or -1, got %d", ev.Delta)
		}
		st.AdvanceYear(ev.Delta)
	case Reset:
		s.player.Stop()
		st.SetPlaying(false)
		st.Reset()
		st.SetTopN(s.clampTopN(st.TopN))
	case TogglePlay:
		st.SetPlaying(s.player.Toggle(ctx))
	case Tick:
		// A tick queued before a stop is stale.
		if !st.Playing {
			return Snapshot{}, errStaleTick
		}
		st.AdvanceYear(1)
	default:
		return Snapshot{}, eris.Errorf("session: unknown event kind %d", ev.Kind)
	}

	s.seq++
	s.log.Debug("session: transition",
		zap.Stringer("event", ev.Kind),
		zap.Int("seq", s.seq),
		zap.String("item", st.Item),
		zap.Int("year", st.Year),
	)
	return s.Snapshot(ev.Kind.String()), nil
}

// Snapshot projects every panel for the current selection.
func (s *Session) Snapshot(event string) Snapshot {
	st := s.state.Snapshot()
	el := st.Element.Label()
	selected := st.Selected()

	snap := Snapshot{
		Session:       s.id,
		Seq:           s.seq,
		Event:         event,
		Item:          st.Item,
		Element:       el,
		Year:          st.Year,
		Scale:         st.Scale.String(),
		TopN:          st.TopN,
		Selected:      selected,
		Playing:       st.Playing,
		TopCountries:  s.proj.TopRanked(st, entity.Country),
		TopContinents: s.proj.TopRanked(st, entity.Continent),
		Scatter:       s.proj.ScatterTriplets(st),
		Series:        s.proj.MultiTimeSeries(st, selected),
		Legend:        s.proj.Legend(st),
	}
	if snap.Selected == nil {
		snap.Selected = []string{}
	}
	if w, ok := s.proj.WorldAggregate(st.Item, el, st.Year); ok {
		snap.World = &w
	}
	if s.opts.Features != nil {
		snap.Map = s.proj.MapFills(st, s.opts.Features)
	}
	if n := len(selected); n > 0 {
		area := selected[n-1]
		snap.Focus = &Focus{
			Profile:   s.proj.CountryProfile(st, area),
			Sparks:    s.proj.ElementSeries(st, area),
			Breakdown: s.proj.CrossItemBreakdown(st, area),
			Share:     s.proj.ShareOfWorldByItem(area, el, st.Year),
		}
	}
	return snap
}

// postTick is the playback callback. It blocks until Run accepts the tick or
// the scheduler stops.
func (s *Session) postTick(ctx context.Context) {
	select {
	case s.events <- Event{Kind: Tick}:
	case <-ctx.Done():
	}
}

func (s *Session) clampTopN(n int) int {
	return clamp(n, s.opts.TopNMin, s.opts.TopNMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
