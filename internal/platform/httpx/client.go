// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the hardened HTTP clients used for the server API
// and the long-lived event stream.
package httpx

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4

	// streamResponseHeaderTimeout bounds the handshake only; the body is
	// read for as long as the server keeps the stream open.
	streamResponseHeaderTimeout = 10 * time.Second
)

// NewClient returns a hardened HTTP client for request/response calls.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(dialTimeout, responseHeaderTimeout),
	}
}

// NewAPIClient returns a traced client for the server's REST endpoints.
// jar carries the session cookies; nil creates a fresh jar.
func NewAPIClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	c := NewClient(timeout)
	c.Jar = ensureJar(jar)
	c.Transport = otelhttp.NewTransport(c.Transport)
	return c
}

// NewStreamClient returns a traced client without an overall timeout for
// server-sent event streams. Share jar with the API client so both use the
// same credentials.
func NewStreamClient(jar http.CookieJar) *http.Client {
	return &http.Client{
		Jar:       ensureJar(jar),
		Transport: otelhttp.NewTransport(newTransport(defaultDialTimeout, streamResponseHeaderTimeout)),
	}
}

// NewJar returns an empty in-memory cookie jar.
func NewJar() http.CookieJar {
	jar, _ := cookiejar.New(nil) // only fails on a bad PublicSuffixList
	return jar
}

func ensureJar(jar http.CookieJar) http.CookieJar {
	if jar != nil {
		return jar
	}
	return NewJar()
}

func newTransport(dialTimeout, responseHeaderTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}
