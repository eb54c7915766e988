package types

import "strings"

// SlotCount is the fixed number of device slots a node carries.
const SlotCount = 3

// SlotConfiguration describes one sensor/actuator slot of a node.
type SlotConfiguration struct {
	DeviceKey    string         `json:"device" yaml:"device"`
	Channel      string         `json:"channel" yaml:"channel"`
	Pins         []string       `json:"pins,omitempty" yaml:"pins,omitempty"`
	FilterKey    string         `json:"filter,omitempty" yaml:"filter,omitempty"`
	FilterParams map[string]any `json:"filter_params,omitempty" yaml:"filter_params,omitempty"`
	LEDCount     *int           `json:"led_count,omitempty" yaml:"led_count,omitempty"`
}

// Empty reports whether the slot is unused.
func (s SlotConfiguration) Empty() bool {
	return strings.TrimSpace(s.DeviceKey) == ""
}

// Slots holds the three slots of a node. Index with Slot(1..3).
type Slots [SlotCount]SlotConfiguration

// Slot returns slot i (1-based). Out-of-range indices yield an empty slot.
func (s *Slots) Slot(i int) SlotConfiguration {
	if i < 1 || i > SlotCount {
		return SlotConfiguration{}
	}
	return s[i-1]
}

// SetSlot replaces slot i (1-based).
func (s *Slots) SetSlot(i int, slot SlotConfiguration) {
	if i < 1 || i > SlotCount {
		return
	}
	s[i-1] = slot
}

// Configured returns the 1-based indices of all non-empty slots in order.
func (s *Slots) Configured() []int {
	idx := make([]int, 0, SlotCount)
	for i := 1; i <= SlotCount; i++ {
		if !s.Slot(i).Empty() {
			idx = append(idx, i)
		}
	}
	return idx
}
