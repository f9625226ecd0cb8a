package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Björk – Début", "Bjork - Debut"},
		{"“Heroes”", `"Heroes"`},
		{"Don’t Stop…", "Don't Stop..."},
		{"Straße", "Strasse"},
		{"Sigur Rós", "Sigur Ros"},
		{"plain ascii", "plain ascii"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"barcode unchanged", "0602537347841", "0602537347841"},
		{"spaces to underscores", "my disc", "my_disc"},
		{"separators to dashes", `AC/DC\Live:1`, "AC-DC-Live-1"},
		{"reserved dropped", `what?*"<>|'s`, "whats"},
		{"accents folded", "Motörhead", "Motorhead"},
		{"non latin dropped", "東京 disc", "_disc"},
		{"empty becomes placeholder", "???", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestTrackFileName(t *testing.T) {
	assert.Equal(t, "01.json", TrackFileName(1))
	assert.Equal(t, "12.json", TrackFileName(12))
	assert.Equal(t, "104.json", TrackFileName(104))
}
