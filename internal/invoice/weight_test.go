package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeWeight(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"5 qtl", "500", true},
		{"2 tons", "2000", true},
		{"10 kg", "10", true},
		{"7", "7", true},
		{"1 ton", "1000", true},
		{"5 QTL", "500", true},
		{"1,250 kg", "1250", true},
		{"2.5 qtl", "250", true},
		{"5qtl", "500", true},
		{"3 Kgs.", "3", true},
		{"12 bags", "12", true}, // unknown unit passes through unconverted
		{"abc kg", "", false},
		{"", "", false},
		{"kg 5", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeWeight(tt.in, nil)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
			}
		})
	}
}
