package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/loader"
	"github.com/sells-group/crop-explorer/internal/selection"
	"github.com/sells-group/crop-explorer/internal/session"
	"github.com/sells-group/crop-explorer/internal/view"
)

// viewKinds are the one-shot projections, in help order.
var viewKinds = []struct {
	name, short string
}{
	{"top", "Top-N areas of a class by value"},
	{"scatter", "Area harvested, production and yield triplets per country"},
	{"series", "Time series of the selected item and element per area"},
	{"breakdown", "Values of every item for one area"},
	{"share", "Share of world per item for one area"},
	{"world", "World aggregate of the selected slice"},
	{"map", "Choropleth fills and legend for the map geometry"},
	{"profile", "Country page: indicators and sparklines for one area"},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print one projection of the current selection as JSON",
}

// viewQuery is the selection requested on the command line. Zero values
// keep the session defaults.
type viewQuery struct {
	Item    string
	Element string
	Year    int
	Scale   string
	TopN    int
	Class   string
	Areas   []string
}

// viewOutput wraps a projection with the selection it was computed for.
type viewOutput struct {
	View     string   `json:"view"`
	Item     string   `json:"item"`
	Element  string   `json:"element"`
	Year     int      `json:"year"`
	Scale    string   `json:"scale"`
	TopN     int      `json:"top_n"`
	Selected []string `json:"selected,omitempty"`
	Data     any      `json:"data"`
}

func init() {
	f := viewCmd.PersistentFlags()
	f.String("item", "", "item (default: first catalog item)")
	f.String("element", "", "element: production, area, yield")
	f.Int("year", 0, "year (default: per view.reset_year)")
	f.String("scale", "", "color scale: linear or log")
	f.Int("top-n", 0, "number of ranked areas (default: view.top_n)")
	f.String("class", "country", "area class for top: country, continent, aggregate")
	f.StringSlice("area", nil, "area name; repeat for series")

	for _, k := range viewKinds {
		kind := k.name
		viewCmd.AddCommand(&cobra.Command{
			Use:   kind,
			Short: k.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runView(cmd, kind)
			},
		})
	}
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, kind string) error {
	ctx := cmd.Context()
	res, err := loadData(ctx, cfg)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cfg, res)
	if err != nil {
		return err
	}

	q := queryFromFlags(cmd)
	out, err := projectView(ctx, kind, res, opts, q)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, out)
}

func queryFromFlags(cmd *cobra.Command) viewQuery {
	var q viewQuery
	q.Item, _ = cmd.Flags().GetString("item")
	q.Element, _ = cmd.Flags().GetString("element")
	q.Year, _ = cmd.Flags().GetInt("year")
	q.Scale, _ = cmd.Flags().GetString("scale")
	q.TopN, _ = cmd.Flags().GetInt("top-n")
	q.Class, _ = cmd.Flags().GetString("class")
	q.Areas, _ = cmd.Flags().GetStringSlice("area")
	return q
}

// uniqueAreas drops repeated areas so each one toggles on exactly once.
func uniqueAreas(areas []string) []string {
	seen := make(map[string]bool, len(areas))
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// queryEvents turns a query into the session events that produce it.
func queryEvents(q viewQuery) ([]session.Event, error) {
	var evs []session.Event
	if q.Item != "" {
		evs = append(evs, session.Event{Kind: session.SetItem, Item: q.Item})
	}
	if q.Element != "" {
		e, err := selection.ParseElement(q.Element)
		if err != nil {
			return nil, err
		}
		evs = append(evs, session.Event{Kind: session.SetElement, Element: e})
	}
	if q.Year != 0 {
		evs = append(evs, session.Event{Kind: session.SetYear, Year: q.Year})
	}
	if q.Scale != "" {
		m, err := selection.ParseScaleMode(q.Scale)
		if err != nil {
			return nil, err
		}
		evs = append(evs, session.Event{Kind: session.SetScale, Scale: m})
	}
	if q.TopN != 0 {
		evs = append(evs, session.Event{Kind: session.SetTopN, TopN: q.TopN})
	}
	for _, a := range q.Areas {
		evs = append(evs, session.Event{Kind: session.ToggleSelect, Area: a})
	}
	return evs, nil
}

func parseClass(s string) (entity.Class, error) {
	switch s {
	case "country", "":
		return entity.Country, nil
	case "continent":
		return entity.Continent, nil
	case "aggregate":
		return entity.OtherAggregate, nil
	}
	return entity.Country, eris.Errorf("view: unknown class %q", s)
}

// projectView applies the query to a fresh session and computes one view.
func projectView(ctx context.Context, kind string, res *loader.Result, opts session.Options, q viewQuery) (viewOutput, error) {
	q.Areas = uniqueAreas(q.Areas)
	evs, err := queryEvents(q)
	if err != nil {
		return viewOutput{}, err
	}
	proj := view.New(res.Store, res.Resolver)
	sess := session.New(proj, res.Store, session.RenderFunc(func(session.Snapshot) error { return nil }), opts)
	for _, ev := range evs {
		if _, err := sess.Apply(ctx, ev); err != nil {
			return viewOutput{}, err
		}
	}

	st := sess.State()
	el := st.Element.Label()
	out := viewOutput{
		View:     kind,
		Item:     st.Item,
		Element:  el,
		Year:     st.Year,
		Scale:    st.Scale.String(),
		TopN:     st.TopN,
		Selected: st.Selected(),
	}

	area := func() (string, error) {
		if len(q.Areas) == 0 {
			return "", eris.Errorf("view: %s needs --area", kind)
		}
		return q.Areas[len(q.Areas)-1], nil
	}

	switch kind {
	case "top":
		class, err := parseClass(q.Class)
		if err != nil {
			return viewOutput{}, err
		}
		out.Data = proj.TopRanked(st, class)
	case "scatter":
		out.Data = proj.ScatterTriplets(st)
	case "series":
		if len(q.Areas) == 0 {
			return viewOutput{}, eris.New("view: series needs at least one --area")
		}
		out.Data = proj.MultiTimeSeries(st, q.Areas)
	case "breakdown":
		a, err := area()
		if err != nil {
			return viewOutput{}, err
		}
		out.Data = proj.CrossItemBreakdown(st, a)
	case "share":
		a, err := area()
		if err != nil {
			return viewOutput{}, err
		}
		out.Data = proj.ShareOfWorldByItem(a, el, st.Year)
	case "world":
		v, ok := proj.WorldAggregate(st.Item, el, st.Year)
		out.Data = struct {
			Value    float64 `json:"value"`
			HasValue bool    `json:"has_value"`
		}{v, ok}
	case "map":
		out.Data = struct {
			Legend view.Legend        `json:"legend"`
			Fills  []view.FeatureFill `json:"fills"`
		}{proj.Legend(st), proj.MapFills(st, res.Features)}
	case "profile":
		a, err := area()
		if err != nil {
			return viewOutput{}, err
		}
		out.Data = struct {
			Profile    view.Profile         `json:"profile"`
			Sparklines []view.ElementSeries `json:"sparklines"`
		}{proj.CountryProfile(st, a), proj.ElementSeries(st, a)}
	default:
		return viewOutput{}, eris.Errorf("view: unknown view %q", kind)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
