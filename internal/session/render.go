package session

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-explorer/internal/view"
)

// Snapshot is the full render-ready state after one transition.
type Snapshot struct {
	Session  string   `json:"session"`
	Seq      int      `json:"seq"`
	Event    string   `json:"event"`
	Item     string   `json:"item"`
	Element  string   `json:"element"`
	Year     int      `json:"year"`
	Scale    string   `json:"scale"`
	TopN     int      `json:"top_n"`
	Selected []string `json:"selected"`
	Playing  bool     `json:"playing"`

	TopCountries  []view.Ranked           `json:"top_countries"`
	TopContinents []view.Ranked           `json:"top_continents"`
	Scatter       []view.Triplet          `json:"scatter"`
	Series        map[string][]view.Point `json:"series"`
	World         *float64                `json:"world,omitempty"`
	Legend        view.Legend             `json:"legend"`
	Map           []view.FeatureFill      `json:"map,omitempty"`
	Focus         *Focus                  `json:"focus,omitempty"`
}

// Focus is the country page of the most recently selected area.
type Focus struct {
	Profile   view.Profile         `json:"profile"`
	Sparks    []view.ElementSeries `json:"sparklines"`
	Breakdown []view.ItemValue     `json:"breakdown"`
	Share     map[string]float64   `json:"share_of_world"`
}

// Renderer consumes snapshots. Implementations must not retain the snapshot
// across calls if they mutate it.
type Renderer interface {
	Render(Snapshot) error
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(Snapshot) error

// Render calls f.
func (f RenderFunc) Render(s Snapshot) error { return f(s) }

// JSONRenderer writes one JSON document per snapshot.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer writes to w, indented when pretty is set.
func NewJSONRenderer(w io.Writer, pretty bool) *JSONRenderer {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &JSONRenderer{enc: enc}
}

// Render encodes s.
func (r *JSONRenderer) Render(s Snapshot) error {
	if err := r.enc.Encode(s); err != nil {
		return eris.Wrap(err, "session: encode snapshot")
	}
	return nil
}
