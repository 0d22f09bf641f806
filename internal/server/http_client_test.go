package server

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/rprusd/thumbhub/internal/config"
)

func TestNewUpstreamClientUsesConfigTimeout(t *testing.T) {
	cfg := &config.Config{
		Global: config.GlobalConfig{
			UpstreamTimeout: config.Duration(45 * time.Second),
		},
	}

	client := NewUpstreamClient(cfg, nil)
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport type %T", client.Transport)
	}
	if transport.ResponseHeaderTimeout != 45*time.Second {
		t.Fatalf("expected header timeout 45s, got %s", transport.ResponseHeaderTimeout)
	}
	if client.Timeout != 0 {
		t.Fatalf("client-wide timeout would cut long downloads, got %s", client.Timeout)
	}
}

func TestNewUpstreamClientUsesCatalogProxy(t *testing.T) {
	proxy, _ := url.Parse("http://proxy.local:3128")
	client := NewUpstreamClient(nil, proxy)
	transport := client.Transport.(*http.Transport)

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/api/lights", nil)
	got, err := transport.Proxy(req)
	if err != nil {
		t.Fatalf("proxy func error: %v", err)
	}
	if got == nil || got.Host != "proxy.local:3128" {
		t.Fatalf("expected catalog proxy, got %v", got)
	}
	if transport == defaultTransport {
		t.Fatalf("shared transport must not be mutated")
	}
}
