package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{
			name:       "no forwarded header uses socket address",
			remoteAddr: "10.0.0.5:54321",
			want:       "10.0.0.5",
		},
		{
			name:       "single forwarded hop",
			xff:        "203.0.113.9",
			remoteAddr: "10.0.0.5:54321",
			want:       "203.0.113.9",
		},
		{
			name:       "first hop of a chain wins",
			xff:        "203.0.113.9, 198.51.100.2, 10.0.0.1",
			remoteAddr: "10.0.0.5:54321",
			want:       "203.0.113.9",
		},
		{
			name:       "whitespace around hops",
			xff:        "  203.0.113.9 , 10.0.0.1",
			remoteAddr: "10.0.0.5:54321",
			want:       "203.0.113.9",
		},
		{
			name:       "garbage forwarded value falls back to socket",
			xff:        "not-an-ip",
			remoteAddr: "10.0.0.5:54321",
			want:       "10.0.0.5",
		},
		{
			name:       "ipv6 forwarded hop",
			xff:        "2001:db8::1",
			remoteAddr: "10.0.0.5:54321",
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 socket address",
			remoteAddr: "[2001:db8::2]:443",
			want:       "2001:db8::2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
