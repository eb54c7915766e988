package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Recognized section keys.
const (
	keyLabel   = "label"
	keyPins    = "pins"
	keyStart   = "start"
	keyAliases = "aliases"
)

type section struct {
	name   string
	line   int
	values map[string]string
}

// Parse reads an INI device catalog. Sections without a label are
// skipped; aliases expand to copies of the canonical descriptor. An
// explicit section always wins over an alias of the same key.
func Parse(r io.Reader) (map[string]*DeviceType, error) {
	sections, err := parseSections(r)
	if err != nil {
		return nil, err
	}

	devices := make(map[string]*DeviceType, len(sections))
	aliasOf := make(map[string]*DeviceType)

	for _, sec := range sections {
		label, ok := sec.values[keyLabel]
		if !ok {
			continue
		}

		dev := &DeviceType{
			Key:          sec.name,
			Label:        label,
			RequiredPins: splitList(sec.values[keyPins], ","),
			CallTemplate: sec.values[keyStart],
			Aliases:      splitList(sec.values[keyAliases], ", \t"),
		}
		devices[dev.Key] = dev

		for _, alias := range dev.Aliases {
			if alias == dev.Key {
				continue
			}
			aliasOf[alias] = dev
		}
	}

	for alias, dev := range aliasOf {
		if _, explicit := devices[alias]; explicit {
			continue
		}
		devices[alias] = dev.withKey(alias)
	}

	return devices, nil
}

func parseSections(r io.Reader) ([]*section, error) {
	var (
		sections []*section
		byName   = make(map[string]*section)
		current  *section
		lineNo   int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("line %d: unterminated section header %q", lineNo, line)
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, fmt.Errorf("line %d: empty section name", lineNo)
			}
			if sec, seen := byName[name]; seen {
				current = sec
				continue
			}
			current = &section{name: name, line: lineNo, values: make(map[string]string)}
			byName[name] = current
			sections = append(sections, current)
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: expected key = value, got %q", lineNo, line)
		}
		if current == nil {
			// Global keys carry no device information.
			continue
		}
		current.values[strings.ToLower(strings.TrimSpace(key))] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return sections, nil
}

// stripComment drops everything from the first ';' outside a quoted value.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			return line[:i]
		}
	}
	return line
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

func splitList(v, seps string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
