package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// Options configures a probe connection.
type Options struct {
	HandshakeTimeout time.Duration // 0 waits indefinitely
	ReadTimeout      time.Duration // per read; 0 waits indefinitely
	Insecure         bool          // skip TLS certificate verification
	Proxy            string        // http://, https://, socks5:// or socks5h:// URL
	Trace            bool          // log handshake and frames at debug level
}

// NormalizeURL ensures the endpoint carries a WebSocket scheme.
func NormalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in %s", parsed.Scheme, raw)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("missing host in %s", raw)
	}

	return parsed.String(), nil
}

// NewDialer builds a gorilla dialer for the given options.
func NewDialer(opts Options) (*websocket.Dialer, error) {
	d := &websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	if opts.Insecure {
		d.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if opts.Proxy == "" {
		return d, nil
	}

	proxyURL, err := url.Parse(opts.Proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch proxyURL.Scheme {
	case "http", "https":
		d.Proxy = http.ProxyURL(proxyURL)
	case "socks5", "socks5h":
		pd, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		d.NetDialContext = contextDialer(pd)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}

	return d, nil
}

func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
