package display

import "testing"

func TestIsQuitKey(t *testing.T) {
	tests := []struct {
		key  int
		quit bool
	}{
		{'q', true},
		{27, true},
		{'a', false},
		{-1, false},
		{0, false},
	}

	for _, tt := range tests {
		if got := IsQuitKey(tt.key); got != tt.quit {
			t.Errorf("IsQuitKey(%d) = %v, want %v", tt.key, got, tt.quit)
		}
	}
}
