package gateway

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowOrigins(t *testing.T) {
	tests := []struct {
		list   string
		origin string
		want   bool
	}{
		{"*", "https://evil.test", true},
		{"https://app.test, https://admin.test", "https://admin.test", true},
		{"https://app.test", "https://evil.test", false},
		{"https://app.test", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		require.Equal(t, tt.want, AllowOrigins(tt.list)(r), "%q / %q", tt.list, tt.origin)
	}
}
