package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crop-explorer/internal/view"
)

func project(t *testing.T, kind string, q viewQuery) viewOutput {
	t.Helper()
	res := testResult(t)
	opts, err := sessionOptions(testConfig(), res)
	require.NoError(t, err)
	out, err := projectView(context.Background(), kind, res, opts, q)
	require.NoError(t, err)
	return out
}

func TestSessionOptions(t *testing.T) {
	res := testResult(t)
	opts, err := sessionOptions(testConfig(), res)
	require.NoError(t, err)
	assert.Equal(t, "Barley", opts.Defaults.Item, "first catalog item")
	assert.Equal(t, 2019, opts.Defaults.MinYear)
	assert.Equal(t, 2020, opts.Defaults.MaxYear)
	assert.Equal(t, 15, opts.Defaults.TopN)
	assert.Len(t, opts.Features, 3)

	c := testConfig()
	c.View.ResetYear = "middle"
	_, err = sessionOptions(c, res)
	assert.Error(t, err)
}

func TestProjectView_Defaults(t *testing.T) {
	out := project(t, "top", viewQuery{})
	assert.Equal(t, "Barley", out.Item)
	assert.Equal(t, "Production", out.Element)
	assert.Equal(t, 2020, out.Year)
	assert.Equal(t, []view.Ranked{{Area: "France", Value: 10000000}}, out.Data)
}

func TestProjectView_Top(t *testing.T) {
	out := project(t, "top", viewQuery{Item: "Wheat", TopN: 1})
	assert.Equal(t, []view.Ranked{{Area: "France", Value: 30000000}}, out.Data)

	out = project(t, "top", viewQuery{Item: "Wheat", Class: "continent"})
	assert.Equal(t, []view.Ranked{{Area: "Africa", Value: 27000000}}, out.Data)

	out = project(t, "top", viewQuery{Item: "Wheat", TopN: 999})
	assert.Equal(t, 50, out.TopN, "clamped to view.top_n_max")
}

func TestProjectView_Scatter(t *testing.T) {
	out := project(t, "scatter", viewQuery{Item: "Wheat"})
	assert.Equal(t, []view.Triplet{
		{Area: "France", AreaHarvested: 5000000, Yield: 6000, Production: 30000000},
		{Area: "Kenya", AreaHarvested: 100000, Yield: 2500, Production: 250000},
	}, out.Data)
}

func TestProjectView_SeriesAndWorld(t *testing.T) {
	out := project(t, "series", viewQuery{Item: "Wheat", Areas: []string{"France", "Kenya"}})
	assert.Equal(t, map[string][]view.Point{
		"France": {{Year: 2019, Value: 40000000}, {Year: 2020, Value: 30000000}},
		"Kenya":  {{Year: 2020, Value: 250000}},
	}, out.Data)
	assert.Equal(t, []string{"France", "Kenya"}, out.Selected)

	out = project(t, "world", viewQuery{Item: "Wheat", Year: 2019})
	b, err := json.Marshal(out.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": 40000000, "has_value": true}`, string(b), "country sum when no world row")
}

func TestProjectView_RepeatedArea(t *testing.T) {
	out := project(t, "series", viewQuery{Item: "Wheat", Areas: []string{"France", "Kenya", "France"}})
	assert.Equal(t, []string{"France", "Kenya"}, out.Selected)
	assert.Len(t, out.Data, 2)

	out = project(t, "profile", viewQuery{Item: "Wheat", Areas: []string{"France", "France"}})
	assert.Equal(t, []string{"France"}, out.Selected)
}

func TestUniqueAreas(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, uniqueAreas([]string{"b", "a", "b", "a"}))
	assert.Empty(t, uniqueAreas(nil))
}

func TestProjectView_AreaViews(t *testing.T) {
	out := project(t, "breakdown", viewQuery{Areas: []string{"France"}})
	assert.Equal(t, []view.ItemValue{{Item: "Wheat", Value: 30000000}, {Item: "Barley", Value: 10000000}}, out.Data)

	out = project(t, "share", viewQuery{Areas: []string{"Kenya"}})
	share := out.Data.(map[string]float64)
	assert.InDelta(t, 250000.0/760000000*100, share["Wheat"], 1e-9)
	assert.NotContains(t, share, "Barley")

	out = project(t, "profile", viewQuery{Item: "Wheat", Areas: []string{"France"}})
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, out))
	assert.Contains(t, buf.String(), `"class": "country"`)
	assert.Contains(t, buf.String(), `"sparklines"`)
}

func TestProjectView_Map(t *testing.T) {
	out := project(t, "map", viewQuery{Item: "Wheat", Scale: "log", Areas: []string{"Kenya"}})
	b, err := json.Marshal(out.Data)
	require.NoError(t, err)

	var got struct {
		Legend view.Legend        `json:"legend"`
		Fills  []view.FeatureFill `json:"fills"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got.Fills, 3)
	assert.True(t, got.Legend.HasData)
	assert.Equal(t, "France", got.Fills[0].Area)
	assert.True(t, got.Fills[1].Selected)
	assert.True(t, got.Fills[2].NoData)
	assert.Equal(t, "log", out.Scale)
}

func TestProjectView_Errors(t *testing.T) {
	res := testResult(t)
	opts, err := sessionOptions(testConfig(), res)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name string
		kind string
		q    viewQuery
	}{
		{"unknown item", "top", viewQuery{Item: "Quinoa"}},
		{"unknown element", "top", viewQuery{Element: "calories"}},
		{"unknown scale", "map", viewQuery{Scale: "sqrt"}},
		{"unknown class", "top", viewQuery{Class: "planet"}},
		{"unknown area", "series", viewQuery{Areas: []string{"Atlantis"}}},
		{"series without area", "series", viewQuery{}},
		{"breakdown without area", "breakdown", viewQuery{}},
		{"unknown view", "pie", viewQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := projectView(ctx, tt.kind, res, opts, tt.q)
			assert.Error(t, err)
		})
	}
}
