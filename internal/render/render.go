// Package render turns a profile record into the card markup and mounts it
// into a render target.
//
// The card is only produced for banned accounts; for any other account the
// target is left exactly as the host rendered it. Every value taken from the
// profile record ends up in a text node or an attribute value and is escaped
// on output.
package render

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"profilecard/internal/api"
	"profilecard/internal/prefs"
)

const (
	NoBio        = "This user has no bio."
	NotAvailable = "N/A"
	ErrorHeading = "Could not fetch profile:"

	createdLayout = "1/2/2006, 3:04:05 PM"
)

// Options carries everything the card depends on besides the records.
type Options struct {
	Prefs    prefs.Preferences
	Language language.Tag
	Location *time.Location
	// SettingsURL is the gear link target; no gear when empty.
	SettingsURL string
	// AvatarURL overrides the avatar source for an id.
	AvatarURL func(id string) string
}

// Render mounts the card for p into t when p is a banned account and reports
// whether it did. c may be nil.
func Render(t Target, p *api.Profile, c *api.Collectibles, o Options) bool {
	if p == nil || !p.IsBanned {
		return false
	}
	var classes []string
	if o.Prefs.Compact {
		classes = append(classes, "compact")
	}
	t.Mount(Card(p, c, o), classes...)
	return true
}

// RenderError mounts the error card for err into t.
func RenderError(t Target, err error) {
	t.Mount(ErrorCard(err), "error")
}

// ErrorCard is the terminal failure view.
func ErrorCard(err error) Node {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return El("div", A("class", "error-card", "role", "alert"),
		El("strong", nil, Txt(ErrorHeading)),
		El("div", A("class", "error-message"), Txt(msg)),
	)
}

// Card builds the full profile card.
func Card(p *api.Profile, c *api.Collectibles, o Options) Node {
	id := string(p.ID)
	rap := formatRAP(p.InventoryRAP, o.Language)
	created := formatCreated(p.Created, o.Location)

	children := []Node{}
	if o.SettingsURL != "" {
		children = append(children, El("a", A("class", "gear", "href", o.SettingsURL, "title", "Settings"), Txt("⚙")))
	}
	children = append(children,
		identity(p, o),
		El("div", A("class", "stat-row"),
			labeled("User ID:", id),
			labeled("Created:", created),
			labeled("RAP:", rap),
		),
		bio(p.Description),
		section("account-info", "Account Info",
			El("div", A("class", "grid"),
				labeled("Is Banned:", strconv.FormatBool(p.IsBanned)),
				labeled("Is Staff:", strconv.FormatBool(p.IsStaff)),
				labeled("Has Verified Badge:", strconv.FormatBool(p.HasVerifiedBadge)),
				labeled("Inventory RAP:", rap),
				labeled("Created:", created),
			),
		),
	)
	if o.Prefs.ShowCollectibles && c != nil {
		children = append(children, collectibles(c))
	}
	children = append(children,
		placeholder("friends", "Friends"),
		placeholder("groups", "Groups"),
		placeholder("badges-list", "Badges"),
	)
	return El("div", A("class", "profile-card"), children...)
}

func identity(p *api.Profile, o Options) Node {
	id := string(p.ID)
	avatar := p.AvatarURL
	if o.AvatarURL != nil {
		avatar = o.AvatarURL(id)
	}
	display := firstNonEmpty(p.DisplayName, p.Name, "User "+id)

	var badges []Node
	if p.IsBanned {
		badges = append(badges, El("span", A("class", "badge banned"), Txt("Banned")))
	}
	if p.HasVerifiedBadge {
		badges = append(badges, El("span", A("class", "badge verified"), Txt("Verified")))
	}
	if p.IsStaff {
		badges = append(badges, El("span", A("class", "badge staff"), Txt("Staff")))
	}

	meta := []Node{El("div", A("class", "display"), Txt(display))}
	if p.Name != "" {
		meta = append(meta, El("div", A("class", "handle"), Txt("@"+p.Name)))
	}
	meta = append(meta, El("div", A("class", "badges"), badges...))

	top := []Node{}
	if src := safeURL(avatar); src != "" {
		top = append(top, El("img", A("class", "avatar", "src", src, "alt", firstNonEmpty(p.Name, display))))
	}
	top = append(top, El("div", A("class", "meta"), meta...))
	return El("div", A("class", "top"), top...)
}

func bio(text string) Node {
	if strings.TrimSpace(text) == "" {
		text = NoBio
	}
	return El("div", A("class", "section bio"),
		El("h3", nil, Txt("About Me")),
		El("p", A("class", "bio-text"), Txt(text)),
	)
}

func collectibles(c *api.Collectibles) Node {
	var items []Node
	for _, it := range c.Items {
		label := firstNonEmpty(it.Name, "Item "+string(it.AssetID))
		if src := safeURL(it.Thumbnail); src != "" {
			items = append(items, El("img", A("src", src, "alt", label, "title", label)))
			continue
		}
		items = append(items, El("span", A("class", "item"), Txt(label)))
	}
	if len(items) == 0 {
		items = append(items, El("span", A("class", "placeholder"), Txt("No collectibles.")))
	}
	return El("div", A("class", "section collectibles"),
		El("h3", nil, Txt("Collectibles")),
		El("div", A("class", "grid"), items...),
	)
}

func section(class, title string, body ...Node) Node {
	return El("div", A("class", "section "+class), append([]Node{El("h3", nil, Txt(title))}, body...)...)
}

func placeholder(class, title string) Node {
	return section(class, title, El("div", A("class", "grid placeholder"), Txt("["+title+" Placeholder]")))
}

func labeled(label, value string) Node {
	return El("div", nil, El("b", nil, Txt(label)), Txt(" "+value))
}

func formatRAP(v *float64, tag language.Tag) string {
	if v == nil {
		return NotAvailable
	}
	if tag == language.Und {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(*v))
}

func formatCreated(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NotAvailable
	}
	if loc == nil {
		loc = time.UTC
	}
	// Date-time values without an offset are wall-clock time in loc; a bare
	// date is midnight UTC.
	layouts := []struct {
		layout string
		in     *time.Location
	}{
		{time.RFC3339Nano, time.UTC},
		{"2006-01-02T15:04:05.999999999", loc},
		{"2006-01-02", time.UTC},
	}
	for _, l := range layouts {
		if ts, err := time.ParseInLocation(l.layout, raw, l.in); err == nil {
			return ts.In(loc).Format(createdLayout)
		}
	}
	return NotAvailable
}

// safeURL passes relative and http(s) URLs and drops everything else.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return u.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
