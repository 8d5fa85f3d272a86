package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/service"
)

func TestVersionInRange(t *testing.T) {
	tests := []struct {
		name        string
		hostVersion string
		supported   string
		want        bool
	}{
		{"exact match", "1.0", "1.0", true},
		{"listed in range text", "1.0", "1.0-2.0", true},
		{"upper bound listed", "2.0", "1.0-2.0", true},
		{"inside numeric range but not listed", "1.5", "1.0-2.0", false},
		{"substring of a longer version", "1.0", "1.0.3", true},
		{"empty supported text", "1.0", "", false},
		{"empty host version", "", "1.0-2.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, service.VersionInRange(tt.hostVersion, tt.supported))
		})
	}
}
