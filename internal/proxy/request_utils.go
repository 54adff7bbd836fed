package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// forwardedHeaders are copied from the client request to the host site.
var forwardedHeaders = []string{"Cookie", "User-Agent", "Accept-Language", "Referer"}

func headersFromRequest(r *http.Request) http.Header {
	hdr := http.Header{}
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			hdr.Set(name, v)
		}
	}
	hdr.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	return hdr
}

// localPath returns raw when it is a path on this server and fallback
// otherwise. Absolute and scheme-relative URLs are never accepted.
func localPath(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}

// refererPath extracts the path of a same-host Referer.
func refererPath(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || !strings.EqualFold(u.Host, r.Host) {
		return ""
	}
	return u.RequestURI()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
