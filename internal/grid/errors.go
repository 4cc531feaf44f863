package grid

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidCharacter  = errors.New("invalid character")
	ErrGridTooLarge      = errors.New("grid too large")
)

// InvalidCoordinateError reports a coordinate that is negative or not an integer.
type InvalidCoordinateError struct {
	// Index of the offending triple in the input, or -1 when not known.
	Index int

	// Axis is "x" or "y".
	Axis string

	// Value is the coordinate as given.
	Value string

	// NotInteger is set when Value could not be parsed as an integer at all.
	NotInteger bool
}

func (e *InvalidCoordinateError) Error() string {
	reason := "negative"
	if e.NotInteger {
		reason = "not an integer"
	}
	if e.Index >= 0 {
		return fmt.Sprintf("triple %d: invalid %s coordinate %q (%s)", e.Index, e.Axis, e.Value, reason)
	}
	return fmt.Sprintf("invalid %s coordinate %q (%s)", e.Axis, e.Value, reason)
}

func (e *InvalidCoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

// InvalidCharacterError reports a character that is empty, spans more than
// one display glyph, or contains control characters.
type InvalidCharacterError struct {
	Index int
	Value string

	// Glyphs is the number of grapheme clusters found in Value.
	Glyphs int
}

func (e *InvalidCharacterError) Error() string {
	var reason string
	switch {
	case e.Glyphs == 0:
		reason = "empty"
	case e.Glyphs > 1:
		reason = fmt.Sprintf("%d glyphs, want 1", e.Glyphs)
	default:
		reason = "not printable"
	}
	if e.Index >= 0 {
		return fmt.Sprintf("triple %d: invalid character %q (%s)", e.Index, e.Value, reason)
	}
	return fmt.Sprintf("invalid character %q (%s)", e.Value, reason)
}

func (e *InvalidCharacterError) Unwrap() error {
	return ErrInvalidCharacter
}

// GridTooLargeError reports a grid whose cell count exceeds the renderer's cap.
type GridTooLargeError struct {
	Width  uint64
	Height uint64
	Limit  int
}

func (e *GridTooLargeError) Error() string {
	return fmt.Sprintf("grid of %dx%d cells exceeds limit of %d cells", e.Width, e.Height, e.Limit)
}

func (e *GridTooLargeError) Unwrap() error {
	return ErrGridTooLarge
}
