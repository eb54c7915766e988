package validation

import (
	"fmt"
	"strings"

	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/controllers"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

// DeviceCatalog resolves device and filter keys to descriptors.
type DeviceCatalog interface {
	Device(key string) (*catalog.DeviceType, bool)
	Filter(key string) (*catalog.Filter, bool)
}

// ControllerLookup resolves controller ids and aliases.
type ControllerLookup interface {
	Lookup(name string) (*controllers.Profile, error)
}

// Validator checks slot selections against the catalog and the
// controller registry.
type Validator struct {
	catalog     DeviceCatalog
	controllers ControllerLookup
}

func NewValidator(cat DeviceCatalog, ctrl ControllerLookup) *Validator {
	return &Validator{catalog: cat, controllers: ctrl}
}

// ValidateRequest resolves the controller and validates all slots. An
// unknown controller is reported on slot 0; slot rules still run without
// controller-specific checks so the caller sees every problem at once.
func (v *Validator) ValidateRequest(controller string, slots *types.Slots) (*controllers.Profile, []types.ValidationError) {
	var errs []types.ValidationError

	profile, err := v.controllers.Lookup(controller)
	if err != nil {
		errs = append(errs, types.ValidationError{
			Kind:    types.KindUnsupportedController,
			Message: fmt.Sprintf("controller %q is not supported", controller),
		})
		profile = nil
	}

	errs = append(errs, Validate(slots, profile, v.catalog)...)
	return profile, errs
}

// Validate applies the slot rules in order and returns every
// violation found. A nil profile skips controller-specific checks.
// An empty result means the selection is accepted.
func Validate(slots *types.Slots, profile *controllers.Profile, cat DeviceCatalog) []types.ValidationError {
	var errs []types.ValidationError
	used := make(map[string]int)

	for i := 1; i <= types.SlotCount; i++ {
		slot := slots.Slot(i)
		if slot.Empty() {
			continue
		}
		key := strings.TrimSpace(slot.DeviceKey)

		dev, known := cat.Device(key)
		supported := known && (profile == nil || profile.Supports(key))
		if !supported {
			msg := fmt.Sprintf("device %q is not in the catalog", key)
			if known {
				msg = fmt.Sprintf("device %q is not supported by controller %q", key, profile.ID)
			}
			errs = append(errs, types.ValidationError{Slot: i, Kind: types.KindUnsupportedDevice, Message: msg})
		}

		if strings.TrimSpace(slot.Channel) == "" {
			errs = append(errs, types.ValidationError{
				Slot:    i,
				Kind:    types.KindMissingChannel,
				Message: "channel name is required",
			})
		}

		if filterKey := strings.TrimSpace(slot.FilterKey); filterKey != "" {
			if _, ok := cat.Filter(filterKey); !ok {
				errs = append(errs, types.ValidationError{
					Slot:    i,
					Kind:    types.KindUnknownFilter,
					Message: fmt.Sprintf("filter %q is not known", filterKey),
				})
			}
		}

		if !supported {
			continue
		}

		if err := checkLEDCount(i, dev, slot.LEDCount); err != nil {
			errs = append(errs, *err)
		}

		if len(dev.RequiredPins) == 0 {
			continue
		}

		if len(slot.Pins) != len(dev.RequiredPins) {
			errs = append(errs, types.ValidationError{
				Slot: i,
				Kind: types.KindPinCountMismatch,
				Message: fmt.Sprintf("device %q needs %d pin(s) (%s), got %d",
					key, len(dev.RequiredPins), strings.Join(dev.RequiredPins, ", "), len(slot.Pins)),
			})
		}

		errs = append(errs, checkPins(i, slot.Pins, profile, used)...)
	}

	return errs
}

func checkLEDCount(slot int, dev *catalog.DeviceType, count *int) *types.ValidationError {
	if !dev.UsesLEDCount() {
		return nil
	}
	switch {
	case count == nil:
		return &types.ValidationError{
			Slot:    slot,
			Kind:    types.KindInvalidLEDCount,
			Message: fmt.Sprintf("device %q needs an LED count", dev.Key),
		}
	case *count < 1:
		return &types.ValidationError{
			Slot:    slot,
			Kind:    types.KindInvalidLEDCount,
			Message: fmt.Sprintf("LED count must be at least 1, got %d", *count),
		}
	}
	return nil
}

func checkPins(slot int, pins []string, profile *controllers.Profile, used map[string]int) []types.ValidationError {
	var errs []types.ValidationError

	for _, raw := range pins {
		pin := strings.TrimSpace(raw)

		if profile != nil && !profile.HasPin(pin) {
			errs = append(errs, types.ValidationError{
				Slot:    slot,
				Kind:    types.KindUnknownPin,
				Message: fmt.Sprintf("pin %q is not available on controller %q", pin, profile.ID),
			})
		}
		if pin == "" {
			continue
		}

		if owner, taken := used[pin]; taken {
			msg := fmt.Sprintf("pin %q is already used by slot %d", pin, owner)
			if owner == slot {
				msg = fmt.Sprintf("pin %q is assigned twice", pin)
			}
			errs = append(errs, types.ValidationError{Slot: slot, Kind: types.KindPinConflict, Message: msg})
			continue
		}
		used[pin] = slot
	}

	return errs
}

// Kinds returns the distinct kinds in errs, in first-seen order.
func Kinds(errs []types.ValidationError) []types.ValidationKind {
	seen := make(map[types.ValidationKind]bool)
	var out []types.ValidationKind
	for _, e := range errs {
		if !seen[e.Kind] {
			seen[e.Kind] = true
			out = append(out, e.Kind)
		}
	}
	return out
}
