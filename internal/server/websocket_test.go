package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"no origin", "example.com", "", true},
		{"localhost", "127.0.0.1:8080", "http://localhost:8080", true},
		{"loopback ip", "localhost:8080", "http://127.0.0.1:8080", true},
		{"ipv6 loopback", "localhost:8080", "http://[::1]:8080", true},
		{"same host", "dictation.lan:8080", "http://dictation.lan:8080", true},
		{"private network", "dictation.lan:8080", "http://192.168.1.20", true},
		{"foreign site", "127.0.0.1:8080", "https://evil.example", false},
		{"public ip", "127.0.0.1:8080", "http://8.8.8.8", false},
		{"invalid origin", "127.0.0.1:8080", "://bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(r))
		})
	}
}
