package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "lowercases and trims",
			input:    []string{"  Safety_Monitoring ", "VOICE_RECORDING"},
			expected: []string{"safety_monitoring", "voice_recording"},
		},
		{
			name:     "dedupes case-insensitively preserving order",
			input:    []string{"data_collection", "Data_Collection", "voice_recording"},
			expected: []string{"data_collection", "voice_recording"},
		},
		{
			name:     "drops empty and whitespace-only elements",
			input:    []string{"safety_monitoring", "", "   "},
			expected: []string{"safety_monitoring"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
