package types

import "fmt"

// ValidationKind classifies a slot validation failure.
type ValidationKind string

const (
	KindUnsupportedDevice     ValidationKind = "UnsupportedDevice"
	KindMissingChannel        ValidationKind = "MissingChannel"
	KindPinCountMismatch      ValidationKind = "PinCountMismatch"
	KindPinConflict           ValidationKind = "PinConflict"
	KindUnknownPin            ValidationKind = "UnknownPin"
	KindUnsupportedController ValidationKind = "UnsupportedController"
	KindUnknownFilter         ValidationKind = "UnknownFilter"
	KindInvalidLEDCount       ValidationKind = "InvalidLEDCount"
)

// ValidationError is one structured validation failure.
// Slot is 1-based; 0 marks a request-level problem.
type ValidationError struct {
	Slot    int            `json:"slot"`
	Kind    ValidationKind `json:"kind"`
	Message string         `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Slot == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("slot %d: %s: %s", e.Slot, e.Kind, e.Message)
}
