package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldType is the input kind of a filter parameter.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldText   FieldType = "text"
	FieldCSVRaw FieldType = "csv-raw"
)

// ParamField declares one filter parameter. A nil Default on an optional
// field means the value is omitted when not supplied.
type ParamField struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Default  any       `json:"default,omitempty"`
	Optional bool      `json:"optional,omitempty"`
}

// Filter is an optional post-processing stage rendered as a chained call.
type Filter struct {
	Key    string       `json:"key"`
	Label  string       `json:"label"`
	Hint   string       `json:"hint,omitempty"`
	Fields []ParamField `json:"fields"`

	render func(v values) string
}

// RenderSuffix renders the chained-call suffix for the given raw
// parameters. Missing or invalid values fall back to the declared defaults.
func (f *Filter) RenderSuffix(params map[string]any) string {
	if f == nil || f.render == nil {
		return ""
	}
	return f.render(f.resolve(params))
}

// values holds normalized, already formatted parameter values.
// A missing entry means "not supplied and no default".
type values map[string]string

func (f *Filter) resolve(params map[string]any) values {
	out := make(values, len(f.Fields))
	for _, field := range f.Fields {
		if v, ok := formatValue(field.Type, params[field.Name]); ok {
			out[field.Name] = v
			continue
		}
		if v, ok := formatValue(field.Type, field.Default); ok {
			out[field.Name] = v
		}
	}
	return out
}

func formatValue(t FieldType, raw any) (string, bool) {
	switch t {
	case FieldNumber:
		n, ok := toNumber(raw)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case FieldText:
		s, ok := raw.(string)
		if !ok || s == "" {
			return "", false
		}
		return quoteText(s), true
	case FieldCSVRaw:
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	return "", false
}

// quoteText renders s as a double-quoted literal without HTML escaping.
func quoteText(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func toNumber(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func call(name string, args ...string) string {
	return fmt.Sprintf(".%s(%s)", name, strings.Join(args, ", "))
}

// present returns the supplied values of the named fields, in order.
func (v values) present(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := v[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

var builtinFilters = []*Filter{
	{
		Key:    "average",
		Label:  "Average",
		Fields: []ParamField{{Name: "buflen", Label: "Buffer length", Type: FieldNumber, Default: 100}},
		render: func(v values) string { return call("filter_average", v["buflen"]) },
	},
	{
		Key:    "jmc_median",
		Label:  "JMC Running Median",
		Fields: []ParamField{},
		render: func(values) string { return call("filter_jmc_median") },
	},
	{
		Key:   "jmc_interval_median",
		Label: "JMC Interval Median",
		Fields: []ParamField{
			{Name: "update_ms", Label: "Update interval (ms)", Type: FieldNumber, Default: 500},
			{Name: "reset_each_ms", Label: "Reset each (ms)", Type: FieldNumber, Optional: true},
		},
		render: func(v values) string {
			// A zero reset interval counts as not supplied.
			if reset, ok := v["reset_each_ms"]; ok && reset != "0" && reset != "-0" {
				return call("filter_jmc_interval_median", reset)
			}
			return call("filter_jmc_interval_median", v["update_ms"])
		},
	},
	{
		Key:    "minchange",
		Label:  "Min Change",
		Fields: []ParamField{{Name: "minchange", Label: "Minimum change", Type: FieldNumber, Default: 0.1}},
		render: func(v values) string { return call("filter_minchange", v["minchange"]) },
	},
	{
		Key:   "binarize",
		Label: "Binarize",
		Fields: []ParamField{
			{Name: "cutoff", Label: "Cutoff / threshold", Type: FieldNumber, Default: 0.5},
			{Name: "high", Label: "High value", Type: FieldText, Default: "on"},
			{Name: "low", Label: "Low value", Type: FieldText, Default: "off"},
		},
		render: func(v values) string { return call("filter_binarize", v["cutoff"], v["high"], v["low"]) },
	},
	{
		Key:    "round",
		Label:  "Round",
		Fields: []ParamField{{Name: "base", Label: "Base (step)", Type: FieldNumber, Default: 1}},
		render: func(v values) string { return call("filter_round", v["base"]) },
	},
	{
		Key:    "limit_time",
		Label:  "Limit per Time",
		Fields: []ParamField{{Name: "interval", Label: "Interval (ms)", Type: FieldNumber, Default: 500}},
		render: func(v values) string { return call("filter_limit_time", v["interval"]) },
	},
	{
		Key:   "detect_click",
		Label: "Click Detector",
		Hint:  "All parameters optional; defaults are used if left blank.",
		Fields: []ParamField{
			{Name: "click_min_ms", Label: "Click min (ms)", Type: FieldNumber, Optional: true},
			{Name: "click_max_ms", Label: "Click max (ms)", Type: FieldNumber, Optional: true},
			{Name: "longclick_min_ms", Label: "Long click min (ms)", Type: FieldNumber, Optional: true},
			{Name: "longclick_max_ms", Label: "Long click max (ms)", Type: FieldNumber, Optional: true},
			{Name: "pressed_str", Label: "Pressed label", Type: FieldText, Optional: true},
			{Name: "released_str", Label: "Released label", Type: FieldText, Optional: true},
		},
		render: func(v values) string {
			return call("filter_detect_click", v.present(
				"click_min_ms", "click_max_ms", "longclick_min_ms", "longclick_max_ms",
				"pressed_str", "released_str")...)
		},
	},
	{
		Key:    "interval_map",
		Label:  "Interval Map",
		Hint:   `Enter pairs v0,b0,v1,b1,...,vn. Example: "low",-0.5,, ,0.5,"high"`,
		Fields: []ParamField{{Name: "pairs", Label: "Pairs (CSV)", Type: FieldCSVRaw}},
		render: func(v values) string { return call("filter_interval_map", v.present("pairs")...) },
	},
}

// BuiltinFilters returns the filter catalog keyed by filter key.
func BuiltinFilters() map[string]*Filter {
	out := make(map[string]*Filter, len(builtinFilters))
	for _, f := range builtinFilters {
		out[f.Key] = f
	}
	return out
}

func sortedFilters(m map[string]*Filter) []*Filter {
	out := make([]*Filter, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
