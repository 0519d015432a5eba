package listing

import (
	"errors"
	"fmt"
	"strings"
)

// Kind says whether a property belongs to the rental or sale domain. It
// determines which pair of canonical states applies.
type Kind string

const (
	KindRent Kind = "rent"
	KindSale Kind = "sale"
)

// ErrUnknownKind is returned when a caller passes a kind outside {rent, sale}.
// This indicates a caller bug, not bad upstream data.
var ErrUnknownKind = errors.New("unknown listing kind")

// ParseKind normalizes a kind string received from a client.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rent":
		return KindRent, nil
	case "sale":
		return KindSale, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// State is one of the four canonical labels a property is classified into for
// display and filtering.
type State string

const (
	StateForRent State = "For Rent"
	StateRentOut State = "Rent Out"
	StateForSale State = "For Sale"
	StateSoldOut State = "Sold Out"
)

// IsClosed reports whether the state is a closed label (Rent Out / Sold Out).
func (s State) IsClosed() bool {
	return s == StateRentOut || s == StateSoldOut
}

// Classify maps the heterogeneous upstream listing-state representations to
// exactly one canonical state. The raw text is matched case-insensitively; the
// closed flag overrides contradictory text. Unrecognized or missing text falls
// back to the open label for the kind, so legacy records still render as
// active listings instead of disappearing.
//
// Classify is total over {rent, sale} × strings × bool and idempotent:
// feeding a canonical label back in as raw text reproduces the same label.
func Classify(kind Kind, raw string, closed bool) (State, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))

	switch kind {
	case KindRent:
		if closed || strings.Contains(norm, "rent out") || strings.Contains(norm, "closed rent") {
			return StateRentOut, nil
		}
		return StateForRent, nil
	case KindSale:
		// "sold" also covers "sold out".
		if closed || strings.Contains(norm, "sold") || strings.Contains(norm, "closed sale") {
			return StateSoldOut, nil
		}
		return StateForSale, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// ClosedState returns the closed label for the kind (the state Classify yields
// once a booking on the property is approved).
func ClosedState(kind Kind) (State, error) {
	switch kind {
	case KindRent:
		return StateRentOut, nil
	case KindSale:
		return StateSoldOut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// OpenState returns the open label for the kind.
func OpenState(kind Kind) (State, error) {
	switch kind {
	case KindRent:
		return StateForRent, nil
	case KindSale:
		return StateForSale, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
