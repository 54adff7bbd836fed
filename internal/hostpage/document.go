// Package hostpage loads the host site's profile page and hands it over as a
// parsed document, either by a plain HTTP GET or by driving a headless
// browser for pages that are assembled client-side.
package hostpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html"
)

// Document is a parsed host page.
type Document struct {
	URL        string
	Status     int
	Header     http.Header
	SetCookies []string
	Root       *html.Node
}

// Path returns the path component of the document URL.
func (d *Document) Path() string {
	u, err := url.Parse(d.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Render serializes the (possibly rewritten) document.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.Root)
}

// Bytes is Render into a buffer.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse reads HTML from r as the page found at pageURL.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return &Document{URL: pageURL, Status: http.StatusOK, Header: http.Header{}, Root: root}, nil
}

// Fetcher loads a host page.
type Fetcher interface {
	Fetch(ctx context.Context, target string, hdr http.Header) (*Document, error)
}
