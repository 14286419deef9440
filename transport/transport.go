package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	utls "github.com/refraction-networking/utls"
)

// Chrome 120 HTTP/2 SETTINGS frame values captured from a real Windows Chrome
// 120 client (verified against Wireshark traces).
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7540#section-6.5
const (
	// chrome120H2HeaderTableSize is sent as SETTINGS_HEADER_TABLE_SIZE.
	// Chrome 120 raises this from the default 4 096 to 65 536 octets.
	chrome120H2HeaderTableSize uint32 = 65536

	// chrome120H2InitialWindowSize is Chrome 120's
	// SETTINGS_INITIAL_WINDOW_SIZE (stream-level flow-control window).
	// NewChrome120H2Transport does not send it (see the note there).
	chrome120H2InitialWindowSize int32 = 6291456

	// chrome120H2ConnWindowSize is Chrome 120's connection-level
	// flow-control increment, sent in the WINDOW_UPDATE frame immediately
	// after the client preface (15 663 105 = 0xEF_0001).
	// NewChrome120H2Transport does not send it either.
	chrome120H2ConnWindowSize int32 = 15663105

	// chrome120H2MaxHeaderListSize is sent as SETTINGS_MAX_HEADER_LIST_SIZE.
	chrome120H2MaxHeaderListSize uint32 = 262144
)

// Chrome120PseudoHeaderOrder lists the HTTP/2 pseudo-header names in the
// order that a real Chrome 120 client sends them.
//
// The standard golang.org/x/net/http2 library writes pseudo-headers in a
// fixed internal order (:method, :path, :scheme, :authority).  Chrome 120
// writes them as :method → :authority → :scheme → :path.  Full wire-level
// fidelity for pseudo-header ordering requires either a patched http2 package
// or a custom HPACK/framing layer; this constant documents the target order
// for integrators who need that level of precision.
var Chrome120PseudoHeaderOrder = []string{
	":method",
	":authority",
	":scheme",
	":path",
}

// H2TransportConfig groups the tunable parameters for NewChrome120H2Transport.
type H2TransportConfig struct {
	// HelloID is the uTLS ClientHello fingerprint to use for TLS.
	// Defaults to utls.HelloChrome_120 when zero.
	HelloID utls.ClientHelloID

	// IdleConnTimeout is the maximum time an idle HTTP/2 connection is kept
	// alive.  Defaults to 90 s.
	IdleConnTimeout time.Duration

	// PingTimeout is the time after which a ping-based health-check fails.
	// Defaults to 15 s (the http2 library default).
	PingTimeout time.Duration

	// ReadIdleTimeout enables periodic ping health-checks when > 0.
	ReadIdleTimeout time.Duration

	// rawDial, when set, replaces the direct net.Dialer normally used to
	// establish the pre-TLS connection (see connectTunnelDialer).
	rawDial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewChrome120H2Transport returns an http.RoundTripper that mimics a Windows
// Chrome 120 HTTP/2 client as closely as possible within the constraints of
// the golang.org/x/net/http2 package:
//
//   - TLS handshake uses the uTLS Chrome 120 ClientHelloSpec (JA3/JA4 bypass).
//   - SETTINGS_HEADER_TABLE_SIZE  = 65 536
//   - SETTINGS_MAX_HEADER_LIST_SIZE = 262 144
//   - The stream-level and connection-level window sizes are not set: the
//     returned transport keeps the http2 package's defaults for both.
//   - DisableCompression is false so the Accept-Encoding header mirrors Chrome.
//
// Note on pseudo-header ordering: the golang.org/x/net/http2 library does not
// expose an API for reordering pseudo-headers (:method, :authority, :scheme,
// :path).  Chrome120PseudoHeaderOrder documents the target order; achieving
// exact wire-level fidelity requires a patched http2 package.
//
// The returned transport wraps http2.Transport in a chrome120RoundTripper that
// applies an OrderedHeader (exact capitalisation and insertion order) to every
// outgoing request before handing it off to the underlying http2 layer.
func NewChrome120H2Transport(cfg H2TransportConfig) http.RoundTripper {
	if cfg.HelloID == (utls.ClientHelloID{}) {
		cfg.HelloID = utls.HelloChrome_120
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	var dialFn func(ctx context.Context, network, addr string, tlsCfg *tls.Config) (net.Conn, error)
	if cfg.rawDial != nil {
		dialFn = UTLSDialerWithRawDial(cfg.HelloID, cfg.rawDial)
	} else {
		dialFn = UTLSDialer(cfg.HelloID)
	}

	h2t := &http2.Transport{
		// Wire the uTLS dialer so every HTTP/2 connection uses the Chrome
		// TLS fingerprint.
		DialTLSContext: func(ctx context.Context, network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
			return dialFn(ctx, network, addr, tlsCfg)
		},

		// SETTINGS_HEADER_TABLE_SIZE = 65 536
		MaxDecoderHeaderTableSize: chrome120H2HeaderTableSize,
		MaxEncoderHeaderTableSize: chrome120H2HeaderTableSize,

		// SETTINGS_MAX_HEADER_LIST_SIZE = 262 144
		MaxHeaderListSize: chrome120H2MaxHeaderListSize,

		// Keep Accept-Encoding in sync with the OrderedHeader we apply;
		// setting DisableCompression: false means the transport won't add
		// its own Accept-Encoding header and override ours.
		DisableCompression: false,

		// Health-check and timeout knobs.
		IdleConnTimeout: cfg.IdleConnTimeout,
		PingTimeout:     cfg.PingTimeout,
		ReadIdleTimeout: cfg.ReadIdleTimeout,
	}

	// h1 carries Chrome 120's stream-level and connection-level window sizes
	// in net/http.HTTP2Config (available since Go 1.24), but h1 is not the
	// transport returned below: h2t is built separately and does not read
	// h1's settings, so these two values never reach the wire.
	h1 := &http.Transport{
		HTTP2: &http.HTTP2Config{
			MaxReceiveBufferPerStream:     int(chrome120H2InitialWindowSize),
			MaxReceiveBufferPerConnection: int(chrome120H2ConnWindowSize),
		},
	}
	if err := http2.ConfigureTransport(h1); err == nil {
		// ConfigureTransport registers h1 with the http2 layer; h1 is not
		// used after this point and h2t is returned instead.
		_ = h1
	}

	return &chrome120RoundTripper{h2: h2t}
}

// chrome120RoundTripper wraps an http2.Transport and applies Chrome 120
// ordered headers to every request before forwarding it.
type chrome120RoundTripper struct {
	h2 *http2.Transport
}

// RoundTrip satisfies http.RoundTripper.  It clones the incoming request,
// applies the Chrome 120 ordered headers (preserving exact capitalisation and
// insertion order), and delegates to the underlying http2.Transport.
//
// Headers already present on the request are NOT discarded: the method merges
// them with the Chrome defaults so that per-session overrides (e.g.
// Authorization, Cookie) take precedence over the defaults.
func (t *chrome120RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone so we do not mutate the caller's request.
	r := req.Clone(req.Context())

	// Build Chrome defaults and then overlay the caller's own headers on top.
	defaults := ChromeOrderedHeaders()
	callerHeaders := r.Header
	// Drop every default the caller sets itself, so that header is sent
	// once, with the caller's value.
	for key := range callerHeaders {
		defaults.Del(key)
	}

	// Apply defaults first (they become the base layer).
	defaults.ApplyToRequest(r)

	// Then re-apply the caller's headers so they win over the defaults.
	for key, vals := range callerHeaders {
		for _, v := range vals {
			r.Header[key] = append(r.Header[key], v)
		}
	}

	return t.h2.RoundTrip(r)
}

// Config groups the tunables for New.
type Config struct {
	// Proxy is an optional proxy URL ("http://host:port"); empty means
	// direct connection. Populated from proxy.Manager.GetNextProxy by
	// callers that rotate across a proxy pool.
	Proxy string
	// Timeout is the http.Client-level end-to-end timeout. xclient.Client
	// applies its own per-request timeout via context, so this is a
	// coarse backstop; 0 disables it (xclient controls timing instead).
	Timeout time.Duration
	H2      H2TransportConfig
}

// New builds an *http.Client fronted by the Chrome-120 TLS/HTTP2
// fingerprint transport. It carries no cookie jar of its own: xclient.Client
// owns cookie state in its jar.Jar and attaches the Cookie header per
// request, so a transport-level jar would only duplicate and potentially
// desync that state.
func New(cfg Config) (*http.Client, error) {
	h2cfg := cfg.H2
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("transport: parse proxy URL %q: %w", cfg.Proxy, err)
		}
		h2cfg.rawDial = connectTunnelDialer(proxyURL)
	}

	return &http.Client{
		Transport: NewChrome120H2Transport(h2cfg),
		Timeout:   cfg.Timeout,
	}, nil
}

// connectTunnelDialer returns a raw-dial function that opens a TCP
// connection to proxyURL and issues an HTTP CONNECT to reach addr, so the
// uTLS handshake that follows runs over the tunneled connection with the
// proxy never seeing the decrypted traffic or the Chrome ClientHello.
func connectTunnelDialer(proxyURL *url.URL) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, proxyURL.Host)
		if err != nil {
			return nil, fmt.Errorf("transport: dial proxy %s: %w", proxyURL.Host, err)
		}

		connectReq := &http.Request{
			Method: http.MethodConnect,
			URL:    &url.URL{Opaque: addr},
			Host:   addr,
			Header: make(http.Header),
		}
		if proxyURL.User != nil {
			connectReq.Header.Set("Proxy-Authorization", "Basic "+basicAuth(proxyURL.User))
		}
		if err := connectReq.Write(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: write CONNECT to %s: %w", addr, err)
		}

		br := bufio.NewReader(conn)
		resp, err := http.ReadResponse(br, connectReq)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: read CONNECT response from %s: %w", proxyURL.Host, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			conn.Close()
			return nil, fmt.Errorf("transport: proxy %s refused CONNECT to %s: %s", proxyURL.Host, addr, resp.Status)
		}
		return conn, nil
	}
}

func basicAuth(u *url.Userinfo) string {
	password, _ := u.Password()
	return base64.StdEncoding.EncodeToString([]byte(u.Username() + ":" + password))
}
