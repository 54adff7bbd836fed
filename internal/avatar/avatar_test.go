package avatar

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func TestFitKeepsAspect(t *testing.T) {
	tests := []struct {
		name       string
		w, h, size int
		opaqueAt   image.Point
		clearAt    image.Point
	}{
		{"square", 420, 420, 112, image.Pt(56, 56), image.Pt(-1, -1)},
		{"wide", 200, 100, 100, image.Pt(50, 50), image.Pt(50, 5)},
		{"tall", 100, 200, 100, image.Pt(50, 50), image.Pt(5, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(solid(tt.w, tt.h), tt.size)
			if got.Bounds().Dx() != tt.size || got.Bounds().Dy() != tt.size {
				t.Fatalf("bounds = %v", got.Bounds())
			}
			if a := got.NRGBAAt(tt.opaqueAt.X, tt.opaqueAt.Y).A; a != 255 {
				t.Fatalf("alpha at %v = %d, want opaque", tt.opaqueAt, a)
			}
			if tt.clearAt.X >= 0 {
				if a := got.NRGBAAt(tt.clearAt.X, tt.clearAt.Y).A; a != 0 {
					t.Fatalf("alpha at %v = %d, want transparent", tt.clearAt, a)
				}
			}
		})
	}
}

func TestFetchScalesUpstreamImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userId") != "7" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_ = jpeg.Encode(w, solid(300, 300), nil)
	}))
	defer srv.Close()

	s := New(srv.Client(), nil)
	data, err := s.Fetch(context.Background(), srv.URL+"/thumbs/avatar.ashx?userId=7", 64)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	if _, err := s.Fetch(context.Background(), srv.URL+"/thumbs/avatar.ashx?userId=8", 64); err == nil {
		t.Fatalf("expected error for upstream 404")
	}
}

func TestFetchRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()
	if _, err := New(srv.Client(), nil).Fetch(context.Background(), srv.URL, 32); err == nil {
		t.Fatalf("expected decode error")
	}
}
