package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
; leading comment
global = ignored

[dht]
Label = DHT22  ; inline comment
PINS  = Pin1
start = dht(name, Pin1)
aliases = dht11, dht22

[hcsr04]
label = Ultrasonic
pins = Pin1, Pin2
start = hcsr04(name, Pin1, Pin2)

[hidden]
pins = Pin1
start = hidden(name, Pin1)

[output]
label = Output
pins = Pin1
start = output(name, Pin1, "on;off", "off")
aliases = relay
`

func TestParse_LabelledSectionsBecomeDevices(t *testing.T) {
	devices, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	dht, ok := devices["dht"]
	require.True(t, ok)
	require.Equal(t, "DHT22", dht.Label)
	require.Equal(t, []string{"Pin1"}, dht.RequiredPins)
	require.Equal(t, "dht(name, Pin1)", dht.CallTemplate)

	hc := devices["hcsr04"]
	require.Equal(t, []string{"Pin1", "Pin2"}, hc.RequiredPins)

	_, ok = devices["hidden"]
	require.False(t, ok, "sections without label must not be visible")
}

func TestParse_AliasesAreShallowCopies(t *testing.T) {
	devices, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	alias, ok := devices["dht22"]
	require.True(t, ok)
	require.Equal(t, "dht22", alias.Key)
	require.Equal(t, devices["dht"].Label, alias.Label)
	require.Equal(t, devices["dht"].CallTemplate, alias.CallTemplate)
	require.Equal(t, devices["dht"].RequiredPins, alias.RequiredPins)

	relay, ok := devices["relay"]
	require.True(t, ok)
	require.Equal(t, "Output", relay.Label)
}

func TestParse_ExplicitSectionWinsOverAlias(t *testing.T) {
	src := `
[a]
label = A
start = a(name)
aliases = shared

[shared]
label = Explicit
start = s(name)
`
	devices, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "Explicit", devices["shared"].Label)
}

func TestParse_CommentInsideQuotesIsKept(t *testing.T) {
	devices, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Equal(t, `output(name, Pin1, "on;off", "off")`, devices["output"].CallTemplate)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated header", "[dht\nlabel = x"},
		{"empty header", "[]\nlabel = x"},
		{"missing equals", "[dht]\nlabel x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)
		})
	}
}

func TestCheckTemplate(t *testing.T) {
	ok := &DeviceType{Key: "dht", RequiredPins: []string{"Pin1"}, CallTemplate: "dht(name, Pin1)"}
	require.NoError(t, ok.CheckTemplate())

	missingRole := &DeviceType{Key: "hc", RequiredPins: []string{"Pin1", "Pin2"}, CallTemplate: "hc(name, Pin1)"}
	require.Error(t, missingRole.CheckTemplate())

	missingChannel := &DeviceType{Key: "x", CallTemplate: "x(topic)"}
	require.Error(t, missingChannel.CheckTemplate())

	// "Pin10" must not count as a reference to "Pin1".
	partial := &DeviceType{Key: "p", RequiredPins: []string{"Pin1"}, CallTemplate: "p(name, Pin10)"}
	require.Error(t, partial.CheckTemplate())
}

func TestUsesLEDCount(t *testing.T) {
	strip := &DeviceType{CallTemplate: "rgb(name, led_count, Pin1)"}
	require.True(t, strip.UsesLEDCount())

	plain := &DeviceType{CallTemplate: `out(name, "led_count")`}
	require.False(t, plain.UsesLEDCount(), "quoted text is literal")
}
