package scaffold

import (
	"strings"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

// Keys written into the system configuration document.
const (
	KeyAPName     = "IOTEMPOWER_AP_NAME"
	KeyAPPassword = "IOTEMPOWER_AP_PASSWORD"
	KeyMQTTHost   = "IOTEMPOWER_MQTT_HOST"
)

// Setting is one KEY="value" assignment.
type Setting struct {
	Key   string
	Value string
}

// CredentialSettings returns the update set for creds. Empty values are
// not part of it, so existing lines for them survive a merge.
func CredentialSettings(creds types.Credentials) []Setting {
	candidates := []Setting{
		{Key: KeyAPName, Value: creds.APName},
		{Key: KeyAPPassword, Value: creds.APPassword},
		{Key: KeyMQTTHost, Value: creds.MQTTHost},
	}
	out := make([]Setting, 0, len(candidates))
	for _, s := range candidates {
		if s.Value != "" {
			out = append(out, s)
		}
	}
	return out
}

// ConfigDocument is a line-oriented shell-style configuration file.
// Lines that are not touched by a merge are kept verbatim, blank ones
// included, and rendered with the document's own line ending.
type ConfigDocument struct {
	lines []string
	eol   string
}

func ParseConfigDocument(content string) *ConfigDocument {
	doc := &ConfigDocument{eol: "\n"}
	if content == "" {
		return doc
	}

	if i := strings.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		doc.eol = "\r\n"
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if doc.eol == "\r\n" {
		for i, line := range lines {
			lines[i] = strings.TrimSuffix(line, "\r")
		}
	}
	doc.lines = lines
	return doc
}

// Merge drops every line assigning one of the update keys and appends
// fresh assignments in update order.
func (d *ConfigDocument) Merge(updates []Setting) {
	if len(updates) == 0 {
		return
	}

	drop := make(map[string]bool, len(updates))
	for _, u := range updates {
		drop[u.Key] = true
	}

	kept := d.lines[:0:0]
	for _, line := range d.lines {
		if key, ok := assignmentKey(line); ok && drop[key] {
			continue
		}
		kept = append(kept, line)
	}

	for _, u := range updates {
		kept = append(kept, u.Key+"="+quoteValue(u.Value))
	}
	d.lines = kept
}

// Get returns the last assigned value of key.
func (d *ConfigDocument) Get(key string) (string, bool) {
	for i := len(d.lines) - 1; i >= 0; i-- {
		k, ok := assignmentKey(d.lines[i])
		if !ok || k != key {
			continue
		}
		_, v, _ := strings.Cut(d.lines[i], "=")
		return unquoteValue(strings.TrimSpace(v)), true
	}
	return "", false
}

// Lines returns a copy of the document lines.
func (d *ConfigDocument) Lines() []string {
	return append([]string(nil), d.lines...)
}

// String renders the document, terminating every line.
func (d *ConfigDocument) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	eol := d.eol
	if eol == "" {
		eol = "\n"
	}
	return strings.Join(d.lines, eol) + eol
}

func assignmentKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	key, _, found := strings.Cut(trimmed, "=")
	if !found {
		return "", false
	}
	return strings.TrimSpace(key), true
}

// Values are written as typed; only the characters that would end the
// quoted string early are escaped.
var valueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteValue(v string) string {
	return `"` + valueEscaper.Replace(v) + `"`
}

func unquoteValue(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	v = v[1 : len(v)-1]
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
		}
		b.WriteByte(v[i])
	}
	return b.String()
}
