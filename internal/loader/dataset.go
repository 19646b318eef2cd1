package loader

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/fetcher"
	"github.com/sells-group/crop-explorer/internal/record"
)

// Dataset formats.
const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatZIP  = "zip"
)

// DatasetFormat resolves "auto" from the source extension. Unknown
// extensions are read as CSV.
func DatasetFormat(cfg config.DataConfig) string {
	f := strings.ToLower(strings.TrimSpace(cfg.Format))
	if f != "" && f != FormatAuto {
		return f
	}
	switch fetcher.Ext(cfg.Source) {
	case ".xlsx":
		return FormatXLSX
	case ".zip":
		return FormatZIP
	}
	return FormatCSV
}

// ReadDataset fetches and decodes the dataset into raw rows.
func ReadDataset(ctx context.Context, src Source, cfg config.DataConfig) ([]record.RawRow, error) {
	format := DatasetFormat(cfg)
	zap.L().Debug("loader: reading dataset", zap.String("source", cfg.Source), zap.String("format", format))

	var table [][]string
	switch format {
	case FormatCSV:
		rc, err := src.Open(ctx, cfg.Source)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		table, err = fetcher.ReadCSV(ctx, rc, csvOptions(cfg))
		if err != nil {
			return nil, err
		}

	case FormatXLSX:
		rc, err := src.Open(ctx, cfg.Source)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		table, err = fetcher.ReadXLSX(rc, cfg.Sheet)
		if err != nil {
			return nil, err
		}

	case FormatZIP:
		data, err := src.ReadAll(ctx, cfg.Source)
		if err != nil {
			return nil, err
		}
		member, name, err := fetcher.ZIPMember(data, cfg.Member)
		if err != nil {
			return nil, err
		}
		zap.L().Debug("loader: using zip member", zap.String("member", name))
		if strings.EqualFold(fetcher.Ext(name), ".xlsx") {
			table, err = fetcher.ReadXLSX(bytes.NewReader(member), cfg.Sheet)
		} else {
			table, err = fetcher.ReadCSV(ctx, bytes.NewReader(member), csvOptions(cfg))
		}
		if err != nil {
			return nil, err
		}

	default:
		return nil, eris.Errorf("loader: unknown dataset format %q", format)
	}

	return MapRows(table)
}

func csvOptions(cfg config.DataConfig) fetcher.CSVOptions {
	return fetcher.CSVOptions{Encoding: cfg.Encoding, LazyQuotes: true}
}

// Column aliases, matched case-insensitively after trimming. Earlier aliases
// win: the M49 column is preferred over the FAO area code.
var columnAliases = map[string][]string{
	"area":     {"area", "country", "country or area"},
	"areaCode": {"area code (m49)", "m49", "m49 code", "area code"},
	"item":     {"item", "crop"},
	"element":  {"element"},
	"unit":     {"unit"},
	"year":     {"year"},
	"value":    {"value"},
}

var yearColumn = regexp.MustCompile(`^[Yy](\d{4})$`)

type columns struct {
	area, areaCode, item, element, unit, year, value int
	// wide lists the year columns, in header order, when the table has one
	// column per year instead of Year and Value columns.
	wide []yearCol
}

type yearCol struct {
	idx  int
	year string
}

func locate(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(field string) int {
		for _, alias := range columnAliases[field] {
			if i, ok := index[alias]; ok {
				return i
			}
		}
		return -1
	}

	c := columns{
		area:     find("area"),
		areaCode: find("areaCode"),
		item:     find("item"),
		element:  find("element"),
		unit:     find("unit"),
		year:     find("year"),
		value:    find("value"),
	}
	if c.year < 0 || c.value < 0 {
		for i, h := range header {
			if m := yearColumn.FindStringSubmatch(strings.TrimSpace(h)); m != nil {
				c.wide = append(c.wide, yearCol{idx: i, year: m[1]})
			}
		}
	}

	var missing []string
	for _, req := range []struct {
		name string
		idx  int
	}{{"Area", c.area}, {"Item", c.item}, {"Element", c.element}} {
		if req.idx < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(c.wide) == 0 {
		if c.year < 0 {
			missing = append(missing, "Year")
		}
		if c.value < 0 {
			missing = append(missing, "Value")
		}
	}
	if len(missing) > 0 {
		return c, eris.Errorf("loader: missing columns %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// MapRows turns a decoded table (header first) into raw rows. Tables with
// Y1961-style columns in place of Year and Value are unpivoted.
func MapRows(table [][]string) ([]record.RawRow, error) {
	if len(table) == 0 {
		return nil, record.ErrEmptyDataset
	}
	c, err := locate(table[0])
	if err != nil {
		return nil, err
	}

	rows := make([]record.RawRow, 0, len(table)-1)
	for _, fields := range table[1:] {
		if blank(fields) {
			continue
		}
		base := record.RawRow{
			Area:     field(fields, c.area),
			AreaCode: field(fields, c.areaCode),
			Item:     field(fields, c.item),
			Element:  field(fields, c.element),
			Unit:     field(fields, c.unit),
		}
		if c.wide == nil {
			base.Year = field(fields, c.year)
			base.Value = field(fields, c.value)
			rows = append(rows, base)
			continue
		}
		for _, yc := range c.wide {
			r := base
			r.Year = yc.year
			r.Value = field(fields, yc.idx)
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
