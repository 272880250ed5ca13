package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

// TestFlashPhaseCalculation verifies the phase logic for message flashing
func TestFlashPhaseCalculation(t *testing.T) {
	// Flash pattern: normal(0-125) -> inverted(125-250) -> normal(250-375) -> inverted(375-500) -> normal(500+)
	tests := []struct {
		elapsed      int64
		wantInverted bool
		description  string
	}{
		{-1000, false, "large negative elapsed - normal"},
		{-1, false, "negative elapsed - normal"},
		{0, false, "start of flash - normal"},
		{124, false, "end of phase 0 - normal"},
		{125, true, "start of phase 1 - inverted"},
		{249, true, "end of phase 1 - inverted"},
		{250, false, "start of phase 2 - normal"},
		{374, false, "end of phase 2 - normal"},
		{375, true, "start of phase 3 - inverted"},
		{499, true, "end of phase 3 - inverted"},
		{500, false, "after flash period - normal"},
		{1000, false, "long after flash - normal"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := flashInverted(tt.elapsed); got != tt.wantInverted {
				t.Errorf("elapsed=%d: got inverted=%v, want %v", tt.elapsed, got, tt.wantInverted)
			}
		})
	}
}

// TestFlashMessageTypes verifies which message types should flash
func TestFlashMessageTypes(t *testing.T) {
	tests := []struct {
		msgType     MessageType
		shouldFlash bool
		description string
	}{
		{MsgInfo, false, "info messages don't flash"},
		{MsgError, true, "error messages flash"},
		{MsgSuccess, true, "success messages flash"},
		{MsgWarning, true, "warning messages flash"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if got := flashes(tt.msgType); got != tt.shouldFlash {
				t.Errorf("msgType=%v: got shouldFlash=%v, want %v", tt.msgType, got, tt.shouldFlash)
			}
		})
	}
}

// TestMessageStyle checks that the status bar inverts flashing messages
// only during the inverted phases.
func TestMessageStyle(t *testing.T) {
	_, _, attrs := messageStyle(MsgError, 150).Decompose()
	if attrs&tcell.AttrReverse == 0 {
		t.Error("error at 150ms: expected reverse video")
	}
	_, _, attrs = messageStyle(MsgError, 300).Decompose()
	if attrs&tcell.AttrReverse != 0 {
		t.Error("error at 300ms: expected normal video")
	}

	// MsgInfo should never flash, regardless of elapsed time
	for elapsed := int64(0); elapsed <= 1000; elapsed += 50 {
		if _, _, attrs := messageStyle(MsgInfo, elapsed).Decompose(); attrs&tcell.AttrReverse != 0 {
			t.Errorf("MsgInfo at elapsed=%d: should never be inverted", elapsed)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Zone", 10, "Zone"},
		{"Loading bay north", 10, "Loading..."},
		{"Zone", 2, "Zo"},
		{"Zoné über", 6, "Zon..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
