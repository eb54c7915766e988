package catalog

import "fmt"

// Placeholder tokens understood in call templates besides the pin roles.
const (
	ChannelToken  = "name"
	LEDCountToken = "led_count"
)

// DeviceType describes one sensor/actuator kind from the catalog.
type DeviceType struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	RequiredPins []string `json:"required_pins"`
	CallTemplate string   `json:"call_template"`
	Aliases      []string `json:"aliases,omitempty"`
}

// withKey returns a shallow copy carrying a different key.
func (d *DeviceType) withKey(key string) *DeviceType {
	cp := *d
	cp.Key = key
	return &cp
}

// CheckTemplate reports a catalog authoring problem when the call template
// does not reference the channel token and every pin role.
func (d *DeviceType) CheckTemplate() error {
	idents := make(map[string]bool)
	for _, tok := range Tokenize(d.CallTemplate) {
		if tok.Ident {
			idents[tok.Text] = true
		}
	}
	if !idents[ChannelToken] {
		return fmt.Errorf("device %q: template %q does not reference %q", d.Key, d.CallTemplate, ChannelToken)
	}
	for _, role := range d.RequiredPins {
		if !idents[role] {
			return fmt.Errorf("device %q: template %q does not reference pin role %q", d.Key, d.CallTemplate, role)
		}
	}
	return nil
}

// UsesLEDCount reports whether the template carries the LED count token.
func (d *DeviceType) UsesLEDCount() bool {
	for _, tok := range Tokenize(d.CallTemplate) {
		if tok.Ident && tok.Text == LEDCountToken {
			return true
		}
	}
	return false
}
