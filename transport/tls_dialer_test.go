package transport_test

import (
	"testing"

	utls "github.com/refraction-networking/utls"

	"github.com/xactions-go/core/transport"
)

func TestUTLSDialerNotNil(t *testing.T) {
	d := transport.UTLSDialer(utls.HelloChrome_120)
	if d == nil {
		t.Fatal("UTLSDialer returned nil for HelloChrome_120")
	}
}

func TestUTLSDialerHTTP1NotNil(t *testing.T) {
	for _, id := range []utls.ClientHelloID{
		utls.HelloChrome_120,
		utls.HelloChrome_131,
		utls.HelloChrome_Auto,
	} {
		d := transport.UTLSDialerHTTP1(id)
		if d == nil {
			t.Errorf("UTLSDialerHTTP1 returned nil for %s", id.Str())
		}
	}
}

func TestUTLSDialerWithRawDialNotNil(t *testing.T) {
	d := transport.UTLSDialerWithRawDial(utls.HelloChrome_120, nil)
	if d == nil {
		t.Fatal("UTLSDialerWithRawDial returned nil")
	}
}
