package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

const (
	defaultTimeout        = 90 * time.Second
	defaultHeaderTimeout  = 60 * time.Second
	defaultDialTimeout    = 15 * time.Second
	defaultTLSHandshake   = 15 * time.Second
	defaultIdleConnection = 90 * time.Second
)

type Options struct {
	PreferIPv4 bool
	// Timeout bounds the whole exchange, body included.
	Timeout time.Duration
	// ResponseHeaderTimeout bounds the wait for the first response byte.
	ResponseHeaderTimeout time.Duration
}

// New returns a client with every stage of the exchange bounded, so an
// upstream call can never hang indefinitely.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	headerTimeout := opts.ResponseHeaderTimeout
	if headerTimeout <= 0 || headerTimeout > timeout {
		headerTimeout = min(defaultHeaderTimeout, timeout)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(opts.PreferIPv4, headerTimeout),
	}
}

func newTransport(preferIPv4 bool, headerTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   defaultDialTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if preferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       defaultIdleConnection,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
