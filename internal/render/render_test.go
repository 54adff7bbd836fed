package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"profilecard/internal/api"
	"profilecard/internal/prefs"
)

const notFoundPage = `<!DOCTYPE html><html><head><title>Pekora</title></head><body>
<nav>menu</nav>
<div class="container-0-2-102 section-content"><h1>Page Not Found</h1></div>
</body></html>`

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func renderDoc(t *testing.T, doc *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func rap(v float64) *float64 { return &v }

func bannedProfile() *api.Profile {
	return &api.Profile{
		ID:               "123456",
		Name:             "builderman",
		DisplayName:      "Builder Man",
		Created:          "2020-01-02T15:04:05Z",
		IsBanned:         true,
		HasVerifiedBadge: true,
		Description:      "hello",
		InventoryRAP:     rap(1234567),
		AvatarURL:        "https://www.pekora.zip/thumbs/avatar.ashx?userId=123456",
	}
}

func TestRenderSkipsAccountsThatAreNotBanned(t *testing.T) {
	doc := parseDoc(t, notFoundPage)
	before := renderDoc(t, doc)

	p := bannedProfile()
	p.IsBanned = false
	if Render(DocumentTarget{Doc: doc}, p, nil, Options{Prefs: prefs.Defaults}) {
		t.Fatalf("Render reported success for an account that is not banned")
	}
	if after := renderDoc(t, doc); after != before {
		t.Fatalf("document changed:\nbefore %s\nafter  %s", before, after)
	}

	var rec Recorder
	Render(&rec, p, nil, Options{})
	if rec.Mounts != 0 {
		t.Fatalf("target mounted %d times", rec.Mounts)
	}
}

func TestRenderEscapesBio(t *testing.T) {
	doc := parseDoc(t, notFoundPage)
	p := bannedProfile()
	p.Description = `<script>alert("x")</script>`
	p.DisplayName = `<img src=x onerror=alert(1)>`
	if !Render(DocumentTarget{Doc: doc}, p, nil, Options{Prefs: prefs.Defaults}) {
		t.Fatalf("Render skipped a banned account")
	}
	out := renderDoc(t, doc)
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw script tag in output: %s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;") {
		t.Fatalf("escaped bio missing: %s", out)
	}
	if len(cascadia.MustCompile("#pekora-profile-restore script, #pekora-profile-restore img[onerror]").MatchAll(doc)) != 0 {
		t.Fatalf("profile text produced live elements")
	}
}

func TestRenderReplacesPlaceholder(t *testing.T) {
	doc := parseDoc(t, notFoundPage)
	Render(DocumentTarget{Doc: doc}, bannedProfile(), nil, Options{Prefs: prefs.Defaults, Language: language.AmericanEnglish})

	c := cascadia.MustCompile("#pekora-profile-restore").MatchFirst(doc)
	if c == nil {
		t.Fatalf("container not claimed")
	}
	out := renderDoc(t, doc)
	if strings.Contains(out, "Page Not Found") {
		t.Fatalf("placeholder content survived")
	}
	for _, want := range []string{
		"Builder Man", "@builderman", "Banned", "Verified",
		"<b>User ID:</b> 123456", "1,234,567", "1/2/2020, 3:04:05 PM",
		"<b>Is Banned:</b> true", "<b>Is Staff:</b> false", "<b>Has Verified Badge:</b> true",
		"[Friends Placeholder]", "[Groups Placeholder]", "[Badges Placeholder]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `class="badge staff"`) {
		t.Fatalf("staff badge rendered for non-staff account")
	}
}

func TestRenderCreatesContainerWhenMissing(t *testing.T) {
	doc := parseDoc(t, `<html><body><main><p>first</p></main></body></html>`)
	Render(DocumentTarget{Doc: doc}, bannedProfile(), nil, Options{})
	body := cascadia.MustCompile("body").MatchFirst(doc)
	first := body.FirstChild
	if first == nil || getAttr(first, "id") != "pekora-profile-restore" {
		t.Fatalf("container not prepended to body")
	}
	if !strings.Contains(getAttr(first, "class"), "section-content") {
		t.Fatalf("fallback container lacks host classes: %q", getAttr(first, "class"))
	}
}

func TestRenderFallbacks(t *testing.T) {
	p := &api.Profile{ID: "5", IsBanned: true}
	card := Card(p, nil, Options{})
	text := card.TextContent()
	if !strings.Contains(text, NoBio) {
		t.Fatalf("missing bio placeholder: %s", text)
	}
	if !strings.Contains(text, "RAP: N/A") || !strings.Contains(text, "Created: N/A") {
		t.Fatalf("missing N/A markers: %s", text)
	}
	if !strings.Contains(text, "User 5") {
		t.Fatalf("missing display fallback: %s", text)
	}
}

func TestCompactAndCollectibles(t *testing.T) {
	p := bannedProfile()
	c := &api.Collectibles{Items: []api.Collectible{
		{AssetID: "1", Name: "Hat", Thumbnail: "https://cdn.example/hat.png"},
		{AssetID: "2", Name: "Bad", Thumbnail: "javascript:alert(1)"},
	}}

	var rec Recorder
	Render(&rec, p, c, Options{Prefs: prefs.Preferences{Compact: true, ShowCollectibles: true}})
	if len(rec.Classes) != 1 || rec.Classes[0] != "compact" {
		t.Fatalf("compact class not requested: %v", rec.Classes)
	}
	sec, ok := rec.Content.Find("collectibles")
	if !ok {
		t.Fatalf("collectibles section missing")
	}
	out := sec.String()
	if !strings.Contains(out, "hat.png") || strings.Contains(out, "javascript:") {
		t.Fatalf("unexpected collectibles markup %s", out)
	}
	if !strings.Contains(out, ">Bad<") {
		t.Fatalf("unsafe thumbnail should fall back to the name: %s", out)
	}

	rec = Recorder{}
	Render(&rec, p, c, Options{Prefs: prefs.Defaults})
	if _, ok := rec.Content.Find("collectibles"); ok {
		t.Fatalf("collectibles rendered while disabled")
	}
	if len(rec.Classes) != 0 {
		t.Fatalf("unexpected classes %v", rec.Classes)
	}

	rec = Recorder{}
	Render(&rec, p, nil, Options{Prefs: prefs.Preferences{ShowCollectibles: true}})
	if _, ok := rec.Content.Find("collectibles"); ok {
		t.Fatalf("collectibles section rendered without data")
	}
}

func TestRenderErrorCard(t *testing.T) {
	doc := parseDoc(t, notFoundPage)
	RenderError(DocumentTarget{Doc: doc}, &api.APIError{Status: 404})
	c := cascadia.MustCompile("#pekora-profile-restore.error").MatchFirst(doc)
	if c == nil {
		t.Fatalf("error card not mounted in the render target")
	}
	out := renderDoc(t, doc)
	if !strings.Contains(out, ErrorHeading) || !strings.Contains(out, "404") {
		t.Fatalf("error card content wrong: %s", out)
	}

	doc = parseDoc(t, notFoundPage)
	RenderError(DocumentTarget{Doc: doc}, errors.New(`<b>boom</b>`))
	if out := renderDoc(t, doc); !strings.Contains(out, "&lt;b&gt;boom&lt;/b&gt;") {
		t.Fatalf("error message not escaped: %s", out)
	}
}

func TestLaterMountWins(t *testing.T) {
	doc := parseDoc(t, notFoundPage)
	target := DocumentTarget{Doc: doc}
	RenderError(target, errors.New("first"))
	Render(target, bannedProfile(), nil, Options{Prefs: prefs.Preferences{Compact: true}})
	c := cascadia.MustCompile("#pekora-profile-restore").MatchFirst(doc)
	cls := getAttr(c, "class")
	if strings.Contains(cls, "error") || !strings.Contains(cls, "compact") {
		t.Fatalf("unexpected container classes %q", cls)
	}
	if strings.Contains(renderDoc(t, doc), "first") {
		t.Fatalf("earlier content survived")
	}
}

func TestFormatCreatedLocation(t *testing.T) {
	loc := time.FixedZone("X", -5*3600)
	if got := formatCreated("2020-01-02T15:04:05Z", loc); got != "1/2/2020, 10:04:05 AM" {
		t.Fatalf("formatCreated = %q", got)
	}
	if got := formatCreated("2019-05-01T12:00:00.123", loc); got != "5/1/2019, 12:00:00 PM" {
		t.Fatalf("formatCreated(no zone) = %q", got)
	}
	if got := formatCreated("2019-05-01", loc); got != "4/30/2019, 7:00:00 PM" {
		t.Fatalf("formatCreated(date only) = %q", got)
	}
	if got := formatCreated("yesterday", nil); got != NotAvailable {
		t.Fatalf("formatCreated(bad) = %q", got)
	}
}

func TestSettingsGear(t *testing.T) {
	card := Card(bannedProfile(), nil, Options{SettingsURL: "/settings?return=%2Fusers%2F1%2Fprofile"})
	gear, ok := card.Find("gear")
	if !ok || gear.Tag != "a" {
		t.Fatalf("gear link missing")
	}
	if _, ok := Card(bannedProfile(), nil, Options{}).Find("gear"); ok {
		t.Fatalf("gear rendered without settings url")
	}
}
