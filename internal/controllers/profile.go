package controllers

// Profile describes one controller model and the pins it exposes.
type Profile struct {
	ID               string   `json:"id" yaml:"id"`
	Board            string   `json:"board" yaml:"board"`
	Aliases          []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Pins             []string `json:"pins" yaml:"pins"`
	SupportedDevices []string `json:"supported_devices,omitempty" yaml:"supported_devices,omitempty"`
}

// Supports reports whether the controller accepts the device key.
// An empty SupportedDevices list accepts every device.
func (p *Profile) Supports(deviceKey string) bool {
	if len(p.SupportedDevices) == 0 {
		return true
	}
	for _, k := range p.SupportedDevices {
		if k == deviceKey {
			return true
		}
	}
	return false
}

// HasPin reports whether pin is one of the controller's pins.
func (p *Profile) HasPin(pin string) bool {
	for _, candidate := range p.Pins {
		if candidate == pin {
			return true
		}
	}
	return false
}
