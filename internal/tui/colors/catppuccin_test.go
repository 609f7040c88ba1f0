package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		value byte
		want  string
	}{
		{0, string(Overlay0)},
		{1, string(Blue)},
		{63, string(Blue)},
		{64, string(Teal)},
		{128, string(Green)},
		{200, string(Yellow)},
		{254, string(Yellow)},
		{255, string(Peach)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, string(Level(tt.value)), "value %d", tt.value)
	}
}
