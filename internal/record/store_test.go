package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(area, code, item, element, unit, year, value string) RawRow {
	return RawRow{Area: area, AreaCode: code, Item: item, Element: element, Unit: unit, Year: year, Value: value}
}

func TestBuild_Empty(t *testing.T) {
	s, err := Build(nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestBuild_NoParseableYear(t *testing.T) {
	s, err := Build([]RawRow{
		row("France", "250", "Wheat", ElementProduction, "t", "", "10"),
		row("France", "250", "Wheat", ElementProduction, "t", "n/a", "10"),
	})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNoYears)
}

func TestLookup_RoundTrip(t *testing.T) {
	rows := []RawRow{
		row("France", "'250", "Wheat", ElementProduction, "t", "2000", "35000000"),
		row("France", "'250", "Wheat", ElementYield, "kg/ha", "2000", "7100.5"),
		row("Kenya", "404", "Maize", ElementAreaHarvested, "ha", "2001", "1500000"),
		row("Kenya", "404", "Maize", ElementProduction, "t", "2001", "0"),
	}
	s, err := Build(rows)
	require.NoError(t, err)

	for _, raw := range rows {
		r := Parse(raw)
		got, ok := s.Lookup(r.Area, r.Item, r.Element, r.Year)
		require.True(t, ok, "missing %+v", raw)
		assert.Equal(t, r.Value, got)
	}
}

func TestLookup_LastWriteWins(t *testing.T) {
	s, err := Build([]RawRow{
		row("France", "250", "Wheat", ElementProduction, "t", "2000", "1"),
		row("France", "250", "Wheat", ElementProduction, "t", "2000", "2"),
	})
	require.NoError(t, err)

	v, ok := s.Lookup("France", "Wheat", ElementProduction, 2000)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = s.LookupByGeo("250", "Wheat", ElementProduction, 2000)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestLookup_NullValues(t *testing.T) {
	s, err := Build([]RawRow{
		row("France", "250", "Wheat", ElementProduction, "t", "2000", ""),
		row("France", "250", "Wheat", ElementProduction, "t", "2001", "NaN"),
		row("France", "250", "Wheat", ElementProduction, "t", "2002", "abc"),
		row("France", "250", "Wheat", ElementProduction, "t", "2003", "12"),
	})
	require.NoError(t, err)

	for _, y := range []int{2000, 2001, 2002} {
		_, ok := s.Lookup("France", "Wheat", ElementProduction, y)
		assert.False(t, ok, "year %d", y)
	}
	_, ok := s.Lookup("Spain", "Wheat", ElementProduction, 2003)
	assert.False(t, ok)
	assert.Equal(t, []int{2000, 2001, 2002, 2003}, s.Years())
}

func TestLookupByGeo_Canonicalized(t *testing.T) {
	s, err := Build([]RawRow{
		row("Afghanistan", "'004", "Wheat", ElementProduction, "t", "1990", "1700000"),
	})
	require.NoError(t, err)

	v, ok := s.LookupByGeo("4", "Wheat", ElementProduction, 1990)
	require.True(t, ok)
	assert.Equal(t, 1700000.0, v)

	id, ok := s.GeoIDFor("Afghanistan")
	require.True(t, ok)
	assert.Equal(t, "4", id)

	area, ok := s.AreaForGeoID("4")
	require.True(t, ok)
	assert.Equal(t, "Afghanistan", area)
}

func TestUnitFor_FirstSeenWins(t *testing.T) {
	s, err := Build([]RawRow{
		row("France", "250", "Wheat", ElementYield, "kg/ha", "2000", "1"),
		row("Spain", "724", "Wheat", ElementYield, "hg/ha", "2000", "1"),
		row("Spain", "724", "Wheat", ElementProduction, "", "2000", "1"),
		row("Spain", "724", "Wheat", ElementProduction, "t", "2001", "1"),
	})
	require.NoError(t, err)

	assert.Equal(t, "kg/ha", s.UnitFor("Wheat", ElementYield))
	assert.Equal(t, "t", s.UnitFor("Wheat", ElementProduction))
	assert.Equal(t, "", s.UnitFor("Rice", ElementProduction))
}

func TestCatalogs(t *testing.T) {
	s, err := Build([]RawRow{
		row("Spain", "724", "wheat", ElementProduction, "t", "2000", "1"),
		row("France", "250", "Wheat", ElementProduction, "t", "2000", "1"),
		row("France", "250", "Barley", ElementProduction, "t", "1999", "1"),
		row("Chad", "148", "Sorghum", ElementProduction, "t", "", "1"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Chad", "France", "Spain"}, s.AllAreas())
	// Ordinal comparison: upper case sorts before lower case.
	assert.Equal(t, []string{"Barley", "Sorghum", "Wheat", "wheat"}, s.AllItems())

	lo, hi := s.YearRange()
	assert.Equal(t, 1999, lo)
	assert.Equal(t, 2000, hi)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 1, s.Skipped())
	assert.True(t, s.HasArea("Chad"))
	assert.False(t, s.HasArea("World"))
}

func TestCatalogs_ReturnCopies(t *testing.T) {
	s, err := Build([]RawRow{row("France", "250", "Wheat", ElementProduction, "t", "2000", "1")})
	require.NoError(t, err)

	items := s.AllItems()
	items[0] = "changed"
	assert.Equal(t, []string{"Wheat"}, s.AllItems())
}
