package ui_test

import (
	"testing"

	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/go-noor/internal/ui"
)

func TestNumericalEntry_TypedRune(t *testing.T) {
	entry := ui.NewNumericalEntry()
	window := test.NewWindow(entry)
	defer window.Close()

	tests := []struct {
		name     string
		input    rune
		accepted bool
	}{
		{"Digit_Zero", '0', true},
		{"Digit_Nine", '9', true},
		{"Letter_a", 'a', false},
		{"Symbol_Dash", '-', false},
		{"Symbol_Dot", '.', false},
		{"Symbol_Space", ' ', false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry.SetText("")
			test.Type(entry, string(tt.input))

			if tt.accepted {
				assert.Equal(t, string(tt.input), entry.Text)
			} else {
				assert.Empty(t, entry.Text)
			}
		})
	}
}

func TestDecimalEntry_Coordinates(t *testing.T) {
	entry := ui.NewDecimalEntry(true)
	window := test.NewWindow(entry)
	defer window.Close()

	test.Type(entry, "-51.5.0x7")
	assert.Equal(t, "-51.507", entry.Text, "second dot and letters are dropped")

	entry.SetText("")
	test.Type(entry, "12-3")
	assert.Equal(t, "123", entry.Text, "minus is only accepted first")
}

func TestDecimalEntry_Unsigned(t *testing.T) {
	entry := ui.NewDecimalEntry(false)
	window := test.NewWindow(entry)
	defer window.Close()

	test.Type(entry, "-18.5")
	assert.Equal(t, "18.5", entry.Text)
}

func TestNumericalEntry_Keyboard(t *testing.T) {
	assert.Equal(t, mobile.NumberKeyboard, ui.NewNumericalEntry().Keyboard())
	assert.Equal(t, mobile.NumberKeyboard, ui.NewDecimalEntry(true).Keyboard())
}

// SetText bypasses the keystroke filter; validation happens separately.
func TestNumericalEntry_DirectSetText(t *testing.T) {
	entry := ui.NewNumericalEntry()
	entry.SetText("abc")
	assert.Equal(t, "abc", entry.Text)
}
