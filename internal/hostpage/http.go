package hostpage

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

const maxPageBytes = 8 << 20

// HTTPFetcher performs a GET and parses whatever body comes back. Non-200
// statuses are still parsed: the host answers its "not found" placeholder
// with a 404 and that page is exactly what gets rewritten.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target string, hdr http.Header) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	hdr = cloneHeader(hdr)
	if hdr.Get("User-Agent") == "" {
		hdr.Set("User-Agent", DefaultUserAgent)
	}
	if hdr.Get("Accept") == "" {
		hdr.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	}
	// Ask for gzip explicitly so brotli never comes back; decoding is then
	// ours to do.
	hdr.Set("Accept-Encoding", "gzip")
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gr, gerr := gzip.NewReader(resp.Body)
		if gerr != nil {
			return nil, fmt.Errorf("fetch %s: %w", target, gerr)
		}
		defer gr.Close()
		reader = gr
	case "deflate":
		raw, rerr := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if rerr != nil {
			return nil, fmt.Errorf("fetch %s: %w", target, rerr)
		}
		if zr, zerr := zlib.NewReader(bytes.NewReader(raw)); zerr == nil {
			defer zr.Close()
			reader = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			reader = fr
		}
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	doc, err := Parse(bytes.NewReader(body), resp.Request.URL.String())
	if err != nil {
		return nil, err
	}
	doc.Status = resp.StatusCode
	doc.Header = resp.Header.Clone()
	doc.Header.Del("Content-Encoding")
	doc.Header.Del("Content-Length")
	doc.SetCookies = resp.Header.Values("Set-Cookie")
	return doc, nil
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
