package main

import (
	"errors"
	"io"
	"testing"

	"profilecard/internal/config"
)

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func TestCloseAllReleasesEveryCloser(t *testing.T) {
	var order []string
	first := closeFunc(func() error { order = append(order, "fetcher"); return io.ErrClosedPipe })
	second := closeFunc(func() error { order = append(order, "store"); return nil })

	err := closeAll(first, nil, second)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("closeAll = %v, want io.ErrClosedPipe", err)
	}
	if len(order) != 2 || order[0] != "fetcher" || order[1] != "store" {
		t.Fatalf("closed %v", order)
	}
}

func TestNewFetcherHTTPModeHasNoCloser(t *testing.T) {
	cfg := config.Default()
	cfg.Upstream.FetchMode = config.FetchHTTP
	f, c := newFetcher(&env{Cfg: cfg})
	if f == nil {
		t.Fatalf("no fetcher")
	}
	if c != nil {
		t.Fatalf("http fetcher returned closer %T", c)
	}
	if err := closeAll(c); err != nil {
		t.Fatalf("closeAll(nil) = %v", err)
	}
}
