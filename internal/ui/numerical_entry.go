package ui

import (
	"strings"

	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"
)

// NumericalEntry is an Entry that only accepts numeric keystrokes.
// Decimal entries also take one '.', and signed entries a leading '-'.
type NumericalEntry struct {
	widget.Entry

	AllowDecimal  bool
	AllowNegative bool
}

// NewNumericalEntry creates an entry for non-negative integers (ports).
func NewNumericalEntry() *NumericalEntry {
	entry := &NumericalEntry{}
	entry.ExtendBaseWidget(entry)
	return entry
}

// NewDecimalEntry creates an entry for signed decimals (coordinates).
func NewDecimalEntry(signed bool) *NumericalEntry {
	entry := &NumericalEntry{AllowDecimal: true, AllowNegative: signed}
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedRune filters keystrokes. Pasted text bypasses it; the Validator
// catches that case.
func (e *NumericalEntry) TypedRune(r rune) {
	switch {
	case r >= '0' && r <= '9':
	case r == '.' && e.AllowDecimal && !strings.ContainsRune(e.Text, '.'):
	case r == '-' && e.AllowNegative && e.CursorColumn == 0 && !strings.ContainsRune(e.Text, '-'):
	default:
		return
	}
	e.Entry.TypedRune(r)
}

// Keyboard shows a numeric keypad on mobile devices.
func (e *NumericalEntry) Keyboard() mobile.KeyboardType {
	return mobile.NumberKeyboard
}
