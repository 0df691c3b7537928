package slotindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels(t *testing.T) {
	got := Labels()

	require.Len(t, got, 16)
	assert.Equal(t, "10:00", got[0])
	assert.Equal(t, "10:30", got[1])
	assert.Equal(t, "17:00", got[14])
	assert.Equal(t, "17:30", got[15])

	// Every label on the grid must validate.
	for _, label := range got {
		assert.True(t, ValidLabel(label), "label %s should be valid", label)
	}
}

func TestLabelsReturnsCopy(t *testing.T) {
	first := Labels()
	first[0] = "corrupted"

	second := Labels()
	assert.Equal(t, "10:00", second[0])
}

func TestValidLabel(t *testing.T) {
	tests := []struct {
		label string
		valid bool
	}{
		{"10:00", true},
		{"13:30", true},
		{"17:30", true},
		{"09:30", false},
		{"18:00", false},
		{"10:15", false},
		{"10:0", false},
		{"", false},
		{"ten o'clock", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidLabel(tt.label), "label %q", tt.label)
	}
}
