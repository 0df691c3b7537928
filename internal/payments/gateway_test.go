package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCents(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{500, 50000},
		{0.01, 1},
		{19.99, 1999},
		{19.995, 2000},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Cents(tt.amount), "amount %v", tt.amount)
	}
}
