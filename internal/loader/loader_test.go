package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/fetcher"
	"github.com/sells-group/crop-explorer/internal/record"
)

const endToEndCSV = `Area,Area Code (M49),Item,Element,Unit,Year,Value
France,'250,Wheat,Production,t,2019,40604960
France,'250,Wheat,Production,t,2020,30144110
Afghanistan,'004,Wheat,Production,t,2020,5185000
Africa,'002,Wheat,Production,t,2020,27000000
World,'001,Wheat,Production,t,2020,760925831
`

func testConfig(t *testing.T, csv, geo string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Data = config.DataConfig{Source: writeFile(t, "crops.csv", []byte(csv)), Format: "auto", Member: "*.csv"}
	cfg.Geometry = geoCfg(writeFile(t, "world.geojson", []byte(geo)))
	cfg.Classify.WorldName = "World"
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := testConfig(t, endToEndCSV, testGeoJSON)

	res, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Store.Len())
	assert.Len(t, res.Features, 3)
	assert.Equal(t, []string{"Afghanistan", "France"}, res.Resolver.AreasOf(entity.Country))
	assert.Equal(t, entity.Continent, res.Resolver.Classify("Africa"))
	assert.Equal(t, entity.OtherAggregate, res.Resolver.Classify("World"))

	lo, hi := res.Store.YearRange()
	assert.Equal(t, 2019, lo)
	assert.Equal(t, 2020, hi)
}

func TestLoad_WorldNameOverride(t *testing.T) {
	cfg := testConfig(t, endToEndCSV, testGeoJSON)
	cfg.Classify.WorldName = "World total"

	res, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "World total", res.Policy.WorldName)
}

func TestLoad_DatasetFailure(t *testing.T) {
	cfg := testConfig(t, endToEndCSV, testGeoJSON)
	cfg.Data.Source = filepath.Join(t.TempDir(), "missing.csv")

	_, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, cfg.Data.Source, le.Source)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_GeometryFailure(t *testing.T) {
	cfg := testConfig(t, endToEndCSV, `{"type": "FeatureCollection", "features": [`)

	_, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, cfg.Geometry.Source, le.Source)
	assert.Contains(t, le.Error(), "loader: load")
}

func TestLoad_EmptyDataset(t *testing.T) {
	cfg := testConfig(t, "Area,Item,Element,Year,Value\n", testGeoJSON)

	_, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, record.ErrEmptyDataset)
}

func TestLoad_NoYears(t *testing.T) {
	cfg := testConfig(t, "Area,Item,Element,Year,Value\nFrance,Wheat,Production,n/a,1\n", testGeoJSON)

	_, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	assert.ErrorIs(t, err, record.ErrNoYears)
}

func TestLoad_BadPolicyFile(t *testing.T) {
	cfg := testConfig(t, endToEndCSV, testGeoJSON)
	cfg.Classify.PolicyFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(context.Background(), cfg, fetcher.NewOpener(fetcher.Options{}))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, cfg.Classify.PolicyFile, le.Source)
}

type failingSource struct{ err error }

func (f failingSource) Open(context.Context, string) (io.ReadCloser, error) { return nil, f.err }

func (f failingSource) ReadAll(context.Context, string) ([]byte, error) { return nil, f.err }

func TestLoad_SourceErrorsAreLoadErrors(t *testing.T) {
	cfg := testConfig(t, endToEndCSV, testGeoJSON)
	boom := errors.New("connection refused")

	_, err := Load(context.Background(), cfg, failingSource{err: boom})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, boom)
}
