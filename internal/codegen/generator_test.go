package codegen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

func testCatalog() *catalog.Store {
	return catalog.NewStaticStore(map[string]*catalog.DeviceType{
		"dht":       {Key: "dht", Label: "DHT", RequiredPins: []string{"Pin1"}, CallTemplate: "dht(name, Pin1)"},
		"hcsr04":    {Key: "hcsr04", Label: "HC-SR04", RequiredPins: []string{"Pin1", "Pin2"}, CallTemplate: "hcsr04(name, Pin1, Pin2)"},
		"mfrc522":   {Key: "mfrc522", Label: "RFID", CallTemplate: "mfrc522(name)"},
		"button":    {Key: "button", Label: "Button", RequiredPins: []string{"Pin1"}, CallTemplate: `input(name, Pin1, "name", "Pin1")`},
		"rgb_strip": {Key: "rgb_strip", Label: "Strip", RequiredPins: []string{"Pin1"}, CallTemplate: "rgb_strip_bus(name, led_count, F_GRB, Pin1)"},
		"broken":    {Key: "broken", Label: "Broken", RequiredPins: []string{"Pin1"}, CallTemplate: "broken(name)"},
	}, zap.NewNop())
}

func slots(s ...types.SlotConfiguration) *types.Slots {
	var out types.Slots
	copy(out[:], s)
	return &out
}

func TestGenerate_DHTScenario(t *testing.T) {
	lines, err := Generate(slots(
		types.SlotConfiguration{DeviceKey: "dht", Channel: "ht01", Pins: []string{"D1"}},
	), testCatalog())
	require.NoError(t, err)
	require.Equal(t, []string{"dht(ht01, D1);"}, lines)
}

func TestGenerate_SlotOrderAndEmptySlots(t *testing.T) {
	lines, err := Generate(slots(
		types.SlotConfiguration{},
		types.SlotConfiguration{DeviceKey: "hcsr04", Channel: "dist", Pins: []string{"D5", "D6"}},
		types.SlotConfiguration{DeviceKey: "mfrc522", Channel: "rfid"},
	), testCatalog())
	require.NoError(t, err)
	require.Equal(t, []string{
		"hcsr04(dist, D5, D6);",
		"mfrc522(rfid);",
	}, lines)
}

func TestGenerate_NoSubstringOrLiteralCollisions(t *testing.T) {
	lines, err := Generate(slots(
		types.SlotConfiguration{DeviceKey: "button", Channel: "door", Pins: []string{"D3"}},
		types.SlotConfiguration{DeviceKey: "dht", Channel: "Pin1name", Pins: []string{"D1"}},
	), testCatalog())
	require.NoError(t, err)
	require.Equal(t, `input(door, D3, "name", "Pin1");`, lines[0])
	require.Equal(t, "dht(Pin1name, D1);", lines[1])
}

func TestGenerate_LEDCountAndFilter(t *testing.T) {
	count := 30
	lines, err := Generate(slots(
		types.SlotConfiguration{DeviceKey: "rgb_strip", Channel: "strip", Pins: []string{"D4"}, LEDCount: &count},
		types.SlotConfiguration{DeviceKey: "dht", Channel: "t", Pins: []string{"D1"}, FilterKey: "average", FilterParams: map[string]any{"buflen": 10}},
	), testCatalog())
	require.NoError(t, err)
	require.Equal(t, "rgb_strip_bus(strip, 30, F_GRB, D4);", lines[0])
	require.Equal(t, "dht(t, D1).filter_average(10);", lines[1])
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		slot types.SlotConfiguration
	}{
		{"template missing role", types.SlotConfiguration{DeviceKey: "broken", Channel: "x", Pins: []string{"D1"}}},
		{"unknown device", types.SlotConfiguration{DeviceKey: "nope", Channel: "x"}},
		{"unknown filter", types.SlotConfiguration{DeviceKey: "mfrc522", Channel: "x", FilterKey: "fft"}},
		{"too few pins", types.SlotConfiguration{DeviceKey: "dht", Channel: "x"}},
		{"missing led count", types.SlotConfiguration{DeviceKey: "rgb_strip", Channel: "x", Pins: []string{"D4"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(slots(types.SlotConfiguration{}, tt.slot), testCatalog())
			var genErr *CodeGenerationError
			require.True(t, errors.As(err, &genErr))
			require.Equal(t, 2, genErr.Slot)
		})
	}
}

func TestProperty_GenerateIsDeterministic(t *testing.T) {
	cat := testCatalog()
	pins := []string{"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7", "D8"}

	rapid.Check(t, func(t *rapid.T) {
		var s types.Slots
		for i := 1; i <= types.SlotCount; i++ {
			key := rapid.SampledFrom([]string{"", "dht", "hcsr04", "mfrc522"}).Draw(t, "key")
			if key == "" {
				continue
			}
			dev, _ := cat.Device(key)
			slot := types.SlotConfiguration{
				DeviceKey: key,
				Channel:   rapid.StringMatching(`[a-z][a-z0-9_]{0,10}`).Draw(t, "channel"),
				Pins:      rapid.SliceOfN(rapid.SampledFrom(pins), len(dev.RequiredPins), len(dev.RequiredPins)).Draw(t, "pins"),
			}
			if rapid.Bool().Draw(t, "filtered") {
				slot.FilterKey = rapid.SampledFrom([]string{"average", "binarize", "detect_click"}).Draw(t, "filter")
			}
			s.SetSlot(i, slot)
		}

		first, err := Generate(&s, cat)
		if err != nil {
			t.Fatal(err)
		}
		second, err := Generate(&s, cat)
		if err != nil {
			t.Fatal(err)
		}
		if len(first) != len(s.Configured()) {
			t.Fatalf("expected one line per configured slot, got %v", first)
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("non-deterministic output: %q vs %q", first[i], second[i])
			}
		}
	})
}
