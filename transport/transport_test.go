package transport_test

import (
	"net/http"
	"testing"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/xactions-go/core/transport"
)

func TestNewChrome120H2TransportNotNil(t *testing.T) {
	rt := transport.NewChrome120H2Transport(transport.H2TransportConfig{})
	if rt == nil {
		t.Fatal("NewChrome120H2Transport returned nil")
	}
}

func TestNewChrome120H2TransportChrome131(t *testing.T) {
	rt := transport.NewChrome120H2Transport(transport.H2TransportConfig{
		HelloID:         utls.HelloChrome_131,
		IdleConnTimeout: 30 * time.Second,
	})
	if rt == nil {
		t.Fatal("NewChrome120H2Transport with Chrome131 returned nil")
	}
}

func TestNewChrome120H2TransportImplementsRoundTripper(t *testing.T) {
	rt := transport.NewChrome120H2Transport(transport.H2TransportConfig{})
	var _ http.RoundTripper = rt
}

func TestChrome120PseudoHeaderOrderContents(t *testing.T) {
	want := map[string]bool{
		":method":    true,
		":authority": true,
		":scheme":    true,
		":path":      true,
	}
	if len(transport.Chrome120PseudoHeaderOrder) != len(want) {
		t.Fatalf("expected %d pseudo-headers, got %d", len(want), len(transport.Chrome120PseudoHeaderOrder))
	}
	for _, h := range transport.Chrome120PseudoHeaderOrder {
		if !want[h] {
			t.Errorf("unexpected pseudo-header %q", h)
		}
	}
}

func TestNewRejectsInvalidProxyURL(t *testing.T) {
	_, err := transport.New(transport.Config{Proxy: "://bad-proxy"})
	if err == nil {
		t.Error("expected error for invalid proxy URL")
	}
}

func TestNewDirectReturnsClient(t *testing.T) {
	c, err := transport.New(transport.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c == nil {
		t.Fatal("New returned nil client")
	}
	if c.Jar != nil {
		t.Error("expected no client-level cookie jar: xclient.Client owns cookie state")
	}
}

func TestNewWithProxyBuildsClientWithoutDialing(t *testing.T) {
	// New only parses the proxy URL and wires a rawDial function; it does
	// not dial anything until a request is actually made, so a syntactically
	// valid proxy URL pointing nowhere is enough to exercise construction.
	c, err := transport.New(transport.Config{Proxy: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New with proxy URL: %v", err)
	}
	if c == nil {
		t.Fatal("New returned nil client")
	}
}
