package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

// Catalog is the subset of the catalog store the generator reads.
type Catalog interface {
	Device(key string) (*catalog.DeviceType, bool)
	Filter(key string) (*catalog.Filter, bool)
}

// CodeGenerationError reports a slot whose descriptor cannot be rendered.
type CodeGenerationError struct {
	Slot      int
	DeviceKey string
	Err       error
}

func (e *CodeGenerationError) Error() string {
	return fmt.Sprintf("code generation failed for slot %d (%s): %v", e.Slot, e.DeviceKey, e.Err)
}

func (e *CodeGenerationError) Unwrap() error { return e.Err }

// Generate renders one statement per configured slot, in slot order.
// Slots must have passed validation. The caller is responsible for
// clearing the program artifact before appending the lines.
func Generate(slots *types.Slots, cat Catalog) ([]string, error) {
	lines := make([]string, 0, types.SlotCount)

	for _, i := range slots.Configured() {
		line, err := renderSlot(slots.Slot(i), cat)
		if err != nil {
			return nil, &CodeGenerationError{Slot: i, DeviceKey: slots.Slot(i).DeviceKey, Err: err}
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func renderSlot(slot types.SlotConfiguration, cat Catalog) (string, error) {
	key := strings.TrimSpace(slot.DeviceKey)
	dev, ok := cat.Device(key)
	if !ok {
		return "", fmt.Errorf("device %q not in catalog", key)
	}
	if err := dev.CheckTemplate(); err != nil {
		return "", err
	}
	if len(slot.Pins) < len(dev.RequiredPins) {
		return "", fmt.Errorf("expected %d pin(s), got %d", len(dev.RequiredPins), len(slot.Pins))
	}

	subst := map[string]string{
		catalog.ChannelToken: strings.TrimSpace(slot.Channel),
	}
	for i, role := range dev.RequiredPins {
		subst[role] = strings.TrimSpace(slot.Pins[i])
	}
	if dev.UsesLEDCount() {
		if slot.LEDCount == nil {
			return "", fmt.Errorf("device %q needs an LED count", key)
		}
		subst[catalog.LEDCountToken] = strconv.Itoa(*slot.LEDCount)
	}

	var b strings.Builder
	for _, tok := range catalog.Tokenize(dev.CallTemplate) {
		if v, ok := subst[tok.Text]; ok && tok.Ident {
			b.WriteString(v)
			continue
		}
		b.WriteString(tok.Text)
	}

	if filterKey := strings.TrimSpace(slot.FilterKey); filterKey != "" {
		filter, ok := cat.Filter(filterKey)
		if !ok {
			return "", fmt.Errorf("unknown filter %q", filterKey)
		}
		b.WriteString(filter.RenderSuffix(slot.FilterParams))
	}

	b.WriteByte(';')
	return b.String(), nil
}
