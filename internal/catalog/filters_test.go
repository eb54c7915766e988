package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuiltinFilters_RenderSuffix(t *testing.T) {
	filters := BuiltinFilters()

	tests := []struct {
		filter string
		params map[string]any
		want   string
	}{
		{"average", nil, ".filter_average(100)"},
		{"average", map[string]any{"buflen": 20.0}, ".filter_average(20)"},
		{"average", map[string]any{"buflen": "abc"}, ".filter_average(100)"},
		{"average", map[string]any{"buflen": "42"}, ".filter_average(42)"},
		{"jmc_median", nil, ".filter_jmc_median()"},
		{"jmc_interval_median", nil, ".filter_jmc_interval_median(500)"},
		{"jmc_interval_median", map[string]any{"update_ms": 250, "reset_each_ms": 1000}, ".filter_jmc_interval_median(1000)"},
		{"jmc_interval_median", map[string]any{"update_ms": 250, "reset_each_ms": 0}, ".filter_jmc_interval_median(250)"},
		{"jmc_interval_median", map[string]any{"reset_each_ms": "0"}, ".filter_jmc_interval_median(500)"},
		{"minchange", nil, ".filter_minchange(0.1)"},
		{"binarize", nil, `.filter_binarize(0.5, "on", "off")`},
		{"binarize", map[string]any{"cutoff": 3.5, "high": "<hi>", "low": ""}, `.filter_binarize(3.5, "<hi>", "off")`},
		{"round", map[string]any{"base": 0.25}, ".filter_round(0.25)"},
		{"limit_time", nil, ".filter_limit_time(500)"},
		{"detect_click", nil, ".filter_detect_click()"},
		{"detect_click", map[string]any{"click_min_ms": 20, "pressed_str": "down"}, `.filter_detect_click(20, "down")`},
		{"interval_map", map[string]any{"pairs": ` "low",-0.5,, ,0.5,"high" `}, `.filter_interval_map("low",-0.5,, ,0.5,"high")`},
		{"interval_map", nil, ".filter_interval_map()"},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, ok := filters[tt.filter]
			require.True(t, ok)
			require.Equal(t, tt.want, f.RenderSuffix(tt.params))
		})
	}
}

func TestFilter_NilRendersEmpty(t *testing.T) {
	var f *Filter
	require.Equal(t, "", f.RenderSuffix(map[string]any{"x": 1}))
}

func TestRenderSuffix_TotalOverArbitraryParams(t *testing.T) {
	filters := sortedFilters(BuiltinFilters())

	rapid.Check(t, func(t *rapid.T) {
		f := rapid.SampledFrom(filters).Draw(t, "filter")
		params := make(map[string]any)
		for _, field := range f.Fields {
			switch rapid.IntRange(0, 4).Draw(t, field.Name+"_kind") {
			case 0:
				// missing
			case 1:
				params[field.Name] = rapid.Float64().Draw(t, field.Name+"_float")
			case 2:
				params[field.Name] = rapid.String().Draw(t, field.Name+"_str")
			case 3:
				params[field.Name] = rapid.Int().Draw(t, field.Name+"_int")
			case 4:
				params[field.Name] = nil
			}
		}

		suffix := f.RenderSuffix(params)
		if len(suffix) == 0 || suffix[0] != '.' || suffix[len(suffix)-1] != ')' {
			t.Fatalf("malformed suffix %q", suffix)
		}
	})
}
