package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsQueueExtension(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected bool
	}{
		{"lower bound", "8000", true},
		{"upper bound", "8999", true},
		{"mid range", "8500", true},
		{"reference queue", "8001", true},
		{"below range", "7999", false},
		{"above range", "9000", false},
		{"agent line", "1002", false},
		{"too short", "800", false},
		{"too long", "80000", false},
		{"non numeric", "8abc", false},
		{"numeric with sign", "+800", false},
		{"empty", "", false},
		{"whitespace", " 800", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsQueueExtension(tc.input))
		})
	}
}
