// Package resolve finds the numeric account identifier of a profile page.
//
// The host markup is not stable, so resolution walks an ordered chain of
// strategies from the most structural signal (the URL path) down to a free
// text scan, and stops at the first one that yields digits.
package resolve

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Identifier is a string of decimal digits naming an account.
type Identifier string

func (id Identifier) String() string { return string(id) }

// Page is the context strategies read from. Doc may be nil.
type Page struct {
	Path string
	Doc  *html.Node
}

// Strategy is one step of the chain.
type Strategy struct {
	Name string
	Find func(Page) (Identifier, bool)
}

var (
	profilePathRe = regexp.MustCompile(`/users/(\d+)/profile`)
	userLinkRe    = regexp.MustCompile(`/users/(\d+)`)
	userIDParamRe = regexp.MustCompile(`userId=(\d+)`)
	labeledIDRe   = regexp.MustCompile(`(?i)\bUser\s*ID[: ]+(\d{3,12})\b`)
	bareIDRe      = regexp.MustCompile(`\bID[: ]+(\d{3,12})\b`)
	digitsRe      = regexp.MustCompile(`^\d+$`)

	idAttrSel = cascadia.MustCompile(`[data-userid], [data-user-id], [data-id]`)
	linkSel   = cascadia.MustCompile(`a[href*="/users/"]`)
	avatarSel = cascadia.MustCompile(`img[src*="avatar.ashx"], img[src*="userId="]`)
)

// idAttrs are checked in this order on each candidate element.
var idAttrs = []string{"data-userid", "data-user-id", "data-id"}

// Chain is the resolution order.
var Chain = []Strategy{
	{Name: "path", Find: FromPath},
	{Name: "attribute", Find: FromAttribute},
	{Name: "link", Find: FromLink},
	{Name: "avatar", Find: FromAvatar},
	{Name: "text", Find: FromText},
}

// Resolve runs Chain and reports the first hit and the strategy that found it.
func Resolve(p Page) (Identifier, string, bool) {
	return ResolveWith(Chain, p)
}

func ResolveWith(chain []Strategy, p Page) (Identifier, string, bool) {
	for _, s := range chain {
		if id, ok := s.Find(p); ok {
			return id, s.Name, true
		}
	}
	return "", "", false
}

// Active reports whether path is a profile page the card applies to.
func Active(path string) bool {
	return profilePathRe.MatchString(path)
}

func FromPath(p Page) (Identifier, bool) {
	return firstGroup(profilePathRe, p.Path)
}

func FromAttribute(p Page) (Identifier, bool) {
	if p.Doc == nil {
		return "", false
	}
	for _, n := range idAttrSel.MatchAll(p.Doc) {
		v := ""
		for _, name := range idAttrs {
			if v = strings.TrimSpace(attr(n, name)); v != "" {
				break
			}
		}
		if digitsRe.MatchString(v) {
			return Identifier(v), true
		}
	}
	return "", false
}

func FromLink(p Page) (Identifier, bool) {
	if p.Doc == nil {
		return "", false
	}
	for _, n := range linkSel.MatchAll(p.Doc) {
		if id, ok := firstGroup(userLinkRe, attr(n, "href")); ok {
			return id, true
		}
	}
	return "", false
}

func FromAvatar(p Page) (Identifier, bool) {
	if p.Doc == nil {
		return "", false
	}
	for _, n := range avatarSel.MatchAll(p.Doc) {
		if id, ok := firstGroup(userIDParamRe, attr(n, "src")); ok {
			return id, true
		}
	}
	return "", false
}

func FromText(p Page) (Identifier, bool) {
	if p.Doc == nil {
		return "", false
	}
	body := findBody(p.Doc)
	if body == nil {
		return "", false
	}
	text := VisibleText(body)
	if id, ok := firstGroup(labeledIDRe, text); ok {
		return id, true
	}
	return firstGroup(bareIDRe, text)
}

func firstGroup(re *regexp.Regexp, s string) (Identifier, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return Identifier(m[1]), true
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
