package scaffold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

func TestMerge_ReplacesHostKeepsUnrelated(t *testing.T) {
	doc := ParseConfigDocument("IOTEMPOWER_MQTT_HOST=\"1.2.3.4\"\nFOO=bar\n")
	doc.Merge(CredentialSettings(types.Credentials{MQTTHost: "9.9.9.9"}))

	out := doc.String()
	require.Contains(t, out, "FOO=bar\n")
	require.Equal(t, 1, strings.Count(out, "IOTEMPOWER_MQTT_HOST="))
	require.Contains(t, out, "IOTEMPOWER_MQTT_HOST=\"9.9.9.9\"\n")
	require.NotContains(t, out, "1.2.3.4")
}

func TestMerge_RemovesEveryOccurrence(t *testing.T) {
	doc := ParseConfigDocument("IOTEMPOWER_AP_NAME=\"a\"\n# comment\n  export IOTEMPOWER_AP_NAME=b\nIOTEMPOWER_AP_NAME_SUFFIX=1")
	doc.Merge([]Setting{{Key: KeyAPName, Value: "c"}})

	require.Equal(t, []string{
		"# comment",
		"IOTEMPOWER_AP_NAME_SUFFIX=1",
		`IOTEMPOWER_AP_NAME="c"`,
	}, doc.Lines())
}

func TestCredentialSettings_OrderAndEmpty(t *testing.T) {
	got := CredentialSettings(types.Credentials{MQTTHost: "h", APName: "n"})
	require.Equal(t, []Setting{{KeyAPName, "n"}, {KeyMQTTHost, "h"}}, got)
	require.Empty(t, CredentialSettings(types.Credentials{}))
}

func TestGet_UnescapesQuotedValues(t *testing.T) {
	doc := ParseConfigDocument("")
	doc.Merge([]Setting{{Key: KeyAPPassword, Value: `pa"ss$wo`+"`rd`"+`\`}})
	require.Equal(t, `IOTEMPOWER_AP_PASSWORD="pa\"ss$wo`+"`rd`"+`\\"`+"\n", doc.String())

	v, ok := doc.Get(KeyAPPassword)
	require.True(t, ok)
	require.Equal(t, `pa"ss$wo`+"`rd`"+`\`, v)
}

func TestMerge_KeepsTrailingBlankLines(t *testing.T) {
	doc := ParseConfigDocument("FOO=bar\n\n\n")
	require.Equal(t, "FOO=bar\n\n\n", doc.String())

	doc.Merge([]Setting{{Key: KeyMQTTHost, Value: "h"}})
	require.Equal(t, "FOO=bar\n\n\nIOTEMPOWER_MQTT_HOST=\"h\"\n", doc.String())
}

func TestMerge_MatchesCRLFLineEndings(t *testing.T) {
	doc := ParseConfigDocument("FOO=bar\r\nIOTEMPOWER_MQTT_HOST=\"old\"\r\n\r\n")
	doc.Merge([]Setting{{Key: KeyMQTTHost, Value: "new"}})
	require.Equal(t, "FOO=bar\r\n\r\nIOTEMPOWER_MQTT_HOST=\"new\"\r\n", doc.String())

	v, ok := doc.Get(KeyMQTTHost)
	require.True(t, ok)
	require.Equal(t, "new", v)
}

func TestProperty_MergeIsFixedPoint(t *testing.T) {
	line := rapid.OneOf(
		rapid.StringMatching(`[A-Z_]{1,12}=[a-z0-9"]{0,8}`),
		rapid.StringMatching(`# [a-z ]{0,12}`),
		rapid.Just(""),
		rapid.SampledFrom([]string{`IOTEMPOWER_MQTT_HOST="1.2.3.4"`, `IOTEMPOWER_AP_NAME=x`}),
	)

	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(line).Draw(t, "lines")
		content := strings.Join(lines, "\n")
		if rapid.Bool().Draw(t, "trailing") {
			content += "\n"
		}
		creds := types.Credentials{
			APName:     rapid.StringMatching(`[a-zA-Z0-9 $"]{0,8}`).Draw(t, "ap"),
			APPassword: rapid.StringMatching(`[a-zA-Z0-9\\]{0,8}`).Draw(t, "pw"),
			MQTTHost:   rapid.StringMatching(`[0-9.]{0,15}`).Draw(t, "host"),
		}

		once := ParseConfigDocument(content)
		once.Merge(CredentialSettings(creds))

		twice := ParseConfigDocument(once.String())
		twice.Merge(CredentialSettings(creds))

		if once.String() != twice.String() {
			t.Fatalf("merge not idempotent:\n%q\n%q", once.String(), twice.String())
		}
	})
}
