package orchestrator

import (
	"context"
	"net/http"
	"time"
)

// Connectivity reports whether the network is reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

// Online calls f.
func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }

// AlwaysOnline reports the network as present.
var AlwaysOnline = ConnectivityFunc(func(context.Context) bool { return true })

// HTTPProbe considers the network present when URL answers a HEAD request with any status.
type HTTPProbe struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// Online issues one HEAD request bounded by Timeout.
func (p HTTPProbe) Online(ctx context.Context) bool {
	if p.URL == "" {
		return true
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	res, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = res.Body.Close()
	return true
}
