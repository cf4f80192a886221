package ageratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOk bool
	}{
		{"PG-13", "PG-13", true},
		{"pg-13", "PG-13", true},
		{"Mature 17+", "Mature 17+", true},
		{"All Ages", "All Ages", true},
		{"13 and up", "13", true},
		{"13", "13", true},
		{"13-17", "13", true},
		{"", "", false},
		{"nonsense", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
