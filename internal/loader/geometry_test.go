package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/fetcher"
)

const testGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "250", "properties": {"name": "France", "ISO_N3": "250"},
     "geometry": {"type": "Point", "coordinates": [2.2, 46.2]}},
    {"type": "Feature", "id": 4, "properties": {"name": "Afghanistan", "ISO_N3": "004"},
     "geometry": {"type": "Point", "coordinates": [67.7, 33.9]}},
    {"type": "Feature", "properties": {"ISO_N3": "-99"},
     "geometry": {"type": "Point", "coordinates": [0, 0]}}
  ]
}`

const testTopoJSON = `{
  "type": "Topology",
  "objects": {
    "countries": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "id": "250", "properties": {"name": "France"}, "arcs": [[0]]},
        {"type": "Polygon", "id": 36, "properties": {"name": "Australia"}, "arcs": [[1]]},
        {"type": "Polygon", "properties": {"name": "N. Cyprus"}, "arcs": [[2]]}
      ]
    },
    "land": {"type": "GeometryCollection", "geometries": []}
  },
  "arcs": []
}`

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func summarize(features []entity.Feature) [][2]string {
	out := make([][2]string, len(features))
	for i, f := range features {
		out[i] = [2]string{deref(f.Name), deref(f.RawID)}
	}
	return out
}

func geoCfg(source string) config.GeometryConfig {
	return config.GeometryConfig{Source: source, Format: "auto", Object: "countries", NameProperty: "name"}
}

func TestDecodeGeoJSON(t *testing.T) {
	features, err := DecodeGeoJSON([]byte(testGeoJSON), geoCfg("x.geojson"))
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"France", "250"},
		{"Afghanistan", "4"},
		{"<nil>", "<nil>"},
	}, summarize(features))
}

func TestDecodeGeoJSON_IDProperty(t *testing.T) {
	cfg := geoCfg("x.geojson")
	cfg.IDProperty = "ISO_N3"
	features, err := DecodeGeoJSON([]byte(testGeoJSON), cfg)
	require.NoError(t, err)
	assert.Equal(t, "004", deref(features[1].RawID))
	assert.Equal(t, "-99", deref(features[2].RawID))
}

func TestDecodeGeoJSON_Invalid(t *testing.T) {
	_, err := DecodeGeoJSON([]byte(`{"type":`), geoCfg("x.geojson"))
	assert.Error(t, err)
}

func TestDecodeTopoJSON(t *testing.T) {
	features, err := DecodeTopoJSON([]byte(testTopoJSON), geoCfg("world-110m.json"))
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"France", "250"},
		{"Australia", "36"},
		{"N. Cyprus", "<nil>"},
	}, summarize(features))
}

func TestDecodeTopoJSON_MissingObject(t *testing.T) {
	cfg := geoCfg("world.json")
	cfg.Object = "states"
	_, err := DecodeTopoJSON([]byte(testTopoJSON), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"states" not found (have countries, land)`)

	_, err = DecodeTopoJSON([]byte(`{nope`), geoCfg("world.json"))
	assert.Error(t, err)
}

func TestGeometryFormat(t *testing.T) {
	assert.Equal(t, FormatTopoJSON, GeometryFormat(geoCfg("world-110m.json"), []byte(testTopoJSON)))
	assert.Equal(t, FormatGeoJSON, GeometryFormat(geoCfg("countries.json"), []byte(testGeoJSON)))
	assert.Equal(t, FormatShapefile, GeometryFormat(geoCfg("ne_110m.zip"), nil))
	assert.Equal(t, FormatTopoJSON, GeometryFormat(geoCfg("a.topojson"), nil))

	cfg := geoCfg("a.json")
	cfg.Format = "GeoJSON"
	assert.Equal(t, FormatGeoJSON, GeometryFormat(cfg, []byte(testTopoJSON)))
}

func writeShapefile(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "ne_110m_admin_0_countries.shp")
	w, err := shp.Create(p, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("NAME", 40),
		shp.StringField("ISO_N3", 4),
	}))
	for i, r := range [][2]string{{"France", "250"}, {"Kenya", "404"}} {
		n := w.Write(&shp.Point{X: float64(i), Y: float64(i)})
		require.NoError(t, w.WriteAttribute(int(n), 0, r[0]))
		require.NoError(t, w.WriteAttribute(int(n), 1, r[1]))
	}
	w.Close()
	return p
}

func TestReadGeometry_LocalShapefile(t *testing.T) {
	p := writeShapefile(t, t.TempDir())
	cfg := geoCfg(p)
	cfg.IDProperty = "iso_n3"

	features, err := ReadGeometry(context.Background(), fetcher.NewOpener(fetcher.Options{}), cfg)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"France", "250"}, {"Kenya", "404"}}, summarize(features))
}

func TestReadGeometry_ZippedShapefile(t *testing.T) {
	dir := t.TempDir()
	writeShapefile(t, dir)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		fw, err := zw.Create(e.Name())
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	cfg := geoCfg(writeFile(t, "ne_110m.zip", buf.Bytes()))
	cfg.NameProperty = "NAME"
	features, err := ReadGeometry(context.Background(), fetcher.NewOpener(fetcher.Options{}), cfg)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Nil(t, features[0].RawID)
}

func TestReadGeometry_ShapefileMissingField(t *testing.T) {
	p := writeShapefile(t, t.TempDir())
	cfg := geoCfg(p)
	cfg.IDProperty = "ADM0_A3"
	_, err := ReadGeometry(context.Background(), fetcher.NewOpener(fetcher.Options{}), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADM0_A3")
}
