package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/fetcher"
	"github.com/sells-group/crop-explorer/internal/record"
)

const faostatCSV = `Area Code,Area Code (M49),Area,Item Code,Item,Element Code,Element,Year Code,Year,Unit,Value,Flag
68,'250,France,15,Wheat,5510,Production,2020,2020,t,30144110,A
68,'250,France,15,Wheat,5312,Area harvested,2020,2020,ha,4512530,A

4,'004,Afghanistan,15,Wheat,5510,Production,2020,2020,t,,M
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestMapRows_LongFormat(t *testing.T) {
	rows, err := fetcher.ReadCSV(context.Background(), bytes.NewReader([]byte(faostatCSV)), fetcher.CSVOptions{})
	require.NoError(t, err)

	got, err := MapRows(rows)
	require.NoError(t, err)
	require.Len(t, got, 3, "blank line dropped")

	assert.Equal(t, record.RawRow{
		Area: "France", AreaCode: "'250", Item: "Wheat", Element: "Production",
		Unit: "t", Year: "2020", Value: "30144110",
	}, got[0])
	assert.Equal(t, "", got[2].Value)
}

func TestMapRows_FallsBackToAreaCode(t *testing.T) {
	got, err := MapRows([][]string{
		{"area", "AREA CODE", "item", "element", "year", "value"},
		{"Chad", "148", "Sorghum", "Yield", "2019", "8000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "148", got[0].AreaCode)
	assert.Equal(t, "", got[0].Unit)
}

func TestMapRows_WideFormat(t *testing.T) {
	got, err := MapRows([][]string{
		{"Area Code (M49)", "Area", "Item", "Element", "Unit", "Y1961", "Y1961F", "Y1962"},
		{"250", "France", "Wheat", "Production", "t", "9600000", "A", ""},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1961", got[0].Year)
	assert.Equal(t, "9600000", got[0].Value)
	assert.Equal(t, "1962", got[1].Year)
	assert.Equal(t, "", got[1].Value)
}

func TestMapRows_MissingColumns(t *testing.T) {
	_, err := MapRows([][]string{{"Area", "Value"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns Item, Element, Year")

	_, err = MapRows(nil)
	assert.ErrorIs(t, err, record.ErrEmptyDataset)
}

func TestMapRows_ShortRows(t *testing.T) {
	got, err := MapRows([][]string{
		{"Area", "Item", "Element", "Year", "Unit", "Value"},
		{"France", "Wheat", "Production", "2020"},
	})
	require.NoError(t, err)
	assert.Equal(t, "", got[0].Value)
}

func TestDatasetFormat(t *testing.T) {
	tests := []struct {
		cfg  config.DataConfig
		want string
	}{
		{config.DataConfig{Source: "a.csv", Format: "auto"}, FormatCSV},
		{config.DataConfig{Source: "a.XLSX"}, FormatXLSX},
		{config.DataConfig{Source: "https://x/bulk.zip?v=2", Format: "auto"}, FormatZIP},
		{config.DataConfig{Source: "a.txt", Format: "auto"}, FormatCSV},
		{config.DataConfig{Source: "a.csv", Format: "ZIP"}, FormatZIP},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Source, func(t *testing.T) {
			assert.Equal(t, tt.want, DatasetFormat(tt.cfg))
		})
	}
}

func TestReadDataset_Latin1CSV(t *testing.T) {
	csv := []byte("Area,Area Code (M49),Item,Element,Unit,Year,Value\nC\xf4te d'Ivoire,384,Cocoa beans,Production,t,2020,2200000\n")
	p := writeFile(t, "crops.csv", csv)

	rows, err := ReadDataset(context.Background(), fetcher.NewOpener(fetcher.Options{}),
		config.DataConfig{Source: p, Format: "auto", Encoding: "latin1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Côte d'Ivoire", rows[0].Area)
}

func TestReadDataset_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Data")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"Area", "M49", "Item", "Element", "Unit", "Year", "Value"},
		{"Kenya", "404", "Maize", "Production", "t", "2021", "3660000"},
	} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	p := filepath.Join(t.TempDir(), "crops.xlsx")
	require.NoError(t, f.Save(p))

	rows, err := ReadDataset(context.Background(), fetcher.NewOpener(fetcher.Options{}),
		config.DataConfig{Source: p, Sheet: "Data"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "404", rows[0].AreaCode)
}

func TestReadDataset_ZIP(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range []struct{ name, body string }{
		{"Production_Crops_E_AreaCodes.csv", "Area Code,Area\n"},
		{"Production_Crops_E_All_Data_(Normalized).csv", faostatCSV},
	} {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	p := writeFile(t, "bulk.zip", buf.Bytes())

	rows, err := ReadDataset(context.Background(), fetcher.NewOpener(fetcher.Options{}),
		config.DataConfig{Source: p, Member: "*All_Data*"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = ReadDataset(context.Background(), fetcher.NewOpener(fetcher.Options{}),
		config.DataConfig{Source: p, Member: "*.csv"})
	require.Error(t, err, "the first csv member has no Item column")
}

func TestReadDataset_UnknownFormat(t *testing.T) {
	_, err := ReadDataset(context.Background(), fetcher.NewOpener(fetcher.Options{}),
		config.DataConfig{Source: "x.csv", Format: "parquet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset format")
}
