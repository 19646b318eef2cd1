package loader

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	geojson "github.com/paulmach/go.geojson"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/fetcher"
)

// Geometry formats.
const (
	FormatGeoJSON   = "geojson"
	FormatTopoJSON  = "topojson"
	FormatShapefile = "shapefile"
)

// GeometryFormat resolves "auto" from the extension, and for plain .json
// from the document's top-level type.
func GeometryFormat(cfg config.GeometryConfig, data []byte) string {
	f := strings.ToLower(strings.TrimSpace(cfg.Format))
	if f != "" && f != FormatAuto {
		return f
	}
	switch fetcher.Ext(cfg.Source) {
	case ".shp", ".zip":
		return FormatShapefile
	case ".topojson":
		return FormatTopoJSON
	case ".geojson":
		return FormatGeoJSON
	}
	if gjson.GetBytes(data, "type").String() == "Topology" {
		return FormatTopoJSON
	}
	return FormatGeoJSON
}

// ReadGeometry fetches and decodes the map features. Only names and
// identifiers are kept; shapes are not needed.
func ReadGeometry(ctx context.Context, src Source, cfg config.GeometryConfig) ([]entity.Feature, error) {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	ext := fetcher.Ext(cfg.Source)

	// A local .shp is opened in place so its sibling .dbf is found.
	if ext == ".shp" && fetcher.Scheme(cfg.Source) == "" && (format == "" || format == FormatAuto || format == FormatShapefile) {
		return readShapefile(fetcher.LocalPath(cfg.Source), cfg)
	}

	data, err := src.ReadAll(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	var features []entity.Feature
	switch f := GeometryFormat(cfg, data); f {
	case FormatGeoJSON:
		features, err = DecodeGeoJSON(data, cfg)
	case FormatTopoJSON:
		features, err = DecodeTopoJSON(data, cfg)
	case FormatShapefile:
		features, err = readZippedShapefile(data, cfg)
	default:
		err = eris.Errorf("loader: unknown geometry format %q", f)
	}
	if err != nil {
		return nil, err
	}
	zap.L().Debug("loader: read geometry", zap.String("source", cfg.Source), zap.Int("features", len(features)))
	return features, nil
}

// DecodeGeoJSON reads a FeatureCollection.
func DecodeGeoJSON(data []byte, cfg config.GeometryConfig) ([]entity.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "loader: parse geojson")
	}

	out := make([]entity.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		name := stringValue(f.Properties[cfg.NameProperty])
		var id *string
		if cfg.IDProperty != "" {
			id = stringValue(f.Properties[cfg.IDProperty])
		} else {
			id = stringValue(f.ID)
		}
		out = append(out, entity.NewFeature(name, id))
	}
	return out, nil
}

// DecodeTopoJSON reads the geometries of one topology object.
func DecodeTopoJSON(data []byte, cfg config.GeometryConfig) ([]entity.Feature, error) {
	if !gjson.ValidBytes(data) {
		return nil, eris.New("loader: parse topojson: invalid json")
	}
	object := cfg.Object
	if object == "" {
		object = "countries"
	}

	geoms := gjson.GetBytes(data, "objects."+escapePath(object)+".geometries")
	if !geoms.IsArray() {
		var names []string
		gjson.GetBytes(data, "objects").ForEach(func(k, _ gjson.Result) bool {
			names = append(names, k.String())
			return true
		})
		sort.Strings(names)
		return nil, eris.Errorf("loader: topojson object %q not found (have %s)", object, strings.Join(names, ", "))
	}

	var out []entity.Feature
	geoms.ForEach(func(_, g gjson.Result) bool {
		name := resultValue(g.Get("properties." + escapePath(cfg.NameProperty)))
		idPath := "id"
		if cfg.IDProperty != "" {
			idPath = "properties." + escapePath(cfg.IDProperty)
		}
		out = append(out, entity.NewFeature(name, resultValue(g.Get(idPath))))
		return true
	})
	return out, nil
}

func readZippedShapefile(data []byte, cfg config.GeometryConfig) ([]entity.Feature, error) {
	dir, err := os.MkdirTemp("", "crop-explorer-shp-")
	if err != nil {
		return nil, eris.Wrap(err, "loader: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	paths, err := fetcher.ExtractZIP(data, dir)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".shp") {
			return readShapefile(p, cfg)
		}
	}
	return nil, eris.New("loader: no .shp member in geometry archive")
}

func readShapefile(path string, cfg config.GeometryConfig) ([]entity.Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	nameIdx, ok := fieldIdx[strings.ToLower(cfg.NameProperty)]
	if !ok {
		return nil, eris.Errorf("loader: shapefile has no %q field", cfg.NameProperty)
	}
	idIdx := -1
	if cfg.IDProperty != "" {
		if idIdx, ok = fieldIdx[strings.ToLower(cfg.IDProperty)]; !ok {
			return nil, eris.Errorf("loader: shapefile has no %q field", cfg.IDProperty)
		}
	}

	var out []entity.Feature
	for reader.Next() {
		name := attribute(reader, nameIdx)
		var id *string
		if idIdx >= 0 {
			id = attribute(reader, idIdx)
		}
		out = append(out, entity.NewFeature(name, id))
	}
	return out, nil
}

func attribute(r *shp.Reader, field int) *string {
	v := strings.TrimSpace(strings.TrimRight(r.Attribute(field), "\x00"))
	if v == "" {
		return nil
	}
	return &v
}

// stringValue converts a decoded JSON scalar to an optional string.
func stringValue(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

func resultValue(r gjson.Result) *string {
	switch r.Type {
	case gjson.String, gjson.Number:
		s := r.String()
		return &s
	}
	return nil
}

// escapePath escapes gjson path metacharacters in a property name.
func escapePath(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
