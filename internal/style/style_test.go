package style

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"profilecard/internal/prefs"
)

func TestGenerateInjectsSizes(t *testing.T) {
	p := prefs.Defaults
	p.AvatarSize = 150
	p.FontSize = 16
	vars, err := Variables(Generate(p))
	if err != nil {
		t.Fatalf("Variables: %v", err)
	}
	if vars["--avatar-size"] != "150px" {
		t.Fatalf("--avatar-size = %q", vars["--avatar-size"])
	}
	if vars["--base-font"] != "16px" {
		t.Fatalf("--base-font = %q", vars["--base-font"])
	}
}

func TestThemesDifferInEveryPaletteVariable(t *testing.T) {
	dark, err := Variables(Generate(prefs.Defaults))
	if err != nil {
		t.Fatalf("dark: %v", err)
	}
	lp := prefs.Defaults
	lp.Theme = prefs.ThemeLight
	light, err := Variables(Generate(lp))
	if err != nil {
		t.Fatalf("light: %v", err)
	}
	if len(Dark.Vars) != len(Light.Vars) {
		t.Fatalf("palettes define different variable sets")
	}
	for _, v := range Dark.Vars {
		d, ok1 := dark[v.Name]
		l, ok2 := light[v.Name]
		if !ok1 || !ok2 {
			t.Fatalf("%s missing from generated output (dark=%v light=%v)", v.Name, ok1, ok2)
		}
		if d == l {
			t.Fatalf("%s identical in both themes: %q", v.Name, d)
		}
	}
}

func TestDerivedSizesFollowBaseFont(t *testing.T) {
	css := Generate(prefs.Defaults)
	for _, want := range []string{
		"calc(var(--base-font) * 1.4)",
		"calc(var(--base-font) * 0.9)",
		"calc(var(--base-font) * 1.05)",
	} {
		if !strings.Contains(css, want) {
			t.Fatalf("stylesheet missing %q", want)
		}
	}
	if !strings.Contains(css, "#pekora-profile-restore.compact .collectibles { display: none; }") {
		t.Fatalf("compact rule missing")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><head><title>x</title></head><body><p>hi</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	p := prefs.Defaults
	p.Theme = prefs.ThemeLight
	css := Generate(p)
	Apply(doc, css)
	Apply(doc, css)

	got := Installed(doc)
	if len(got) != 1 {
		t.Fatalf("expected exactly one stylesheet, got %d", len(got))
	}
	if got[0].Parent == nil || got[0].Parent.Data != "head" {
		t.Fatalf("stylesheet not in head")
	}
	if got[0].FirstChild == nil || got[0].FirstChild.Data != css {
		t.Fatalf("stylesheet content does not reflect preferences")
	}
}

func TestApplyReplacesStaleAndStraySheets(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<head><style id="pekora-ui-style">old</style></head><body><style id="pekora-ui-style">stray</style></body>`))
	if err != nil {
		t.Fatal(err)
	}
	Apply(doc, "fresh")
	got := Installed(doc)
	if len(got) != 1 || got[0].FirstChild.Data != "fresh" {
		t.Fatalf("expected only the fresh stylesheet, got %d", len(got))
	}
}

func TestApplyCreatesHead(t *testing.T) {
	doc := &html.Node{Type: html.DocumentNode}
	Apply(doc, "a{}")
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `<html><head><style id="pekora-ui-style">a{}</style></head></html>`) {
		t.Fatalf("unexpected document %s", buf.String())
	}
}
