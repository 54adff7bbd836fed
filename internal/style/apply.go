package style

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ownedSel = cascadia.MustCompile("style#" + ElementID)

// Apply removes every stylesheet previously installed under ElementID and
// appends a single fresh one holding css to the document head, creating the
// head when the document has none. It returns the new element.
func Apply(doc *html.Node, css string) *html.Node {
	for _, old := range ownedSel.MatchAll(doc) {
		if old.Parent != nil {
			old.Parent.RemoveChild(old)
		}
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: ElementID}},
	}
	el.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	ensureHead(doc).AppendChild(el)
	return el
}

// Installed returns the stylesheets currently tagged with ElementID.
func Installed(doc *html.Node) []*html.Node {
	return ownedSel.MatchAll(doc)
}

func ensureHead(doc *html.Node) *html.Node {
	root := findElement(doc, "html")
	if root == nil {
		root = &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
		doc.AppendChild(root)
	}
	if head := findElement(root, "head"); head != nil {
		return head
	}
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	root.InsertBefore(head, root.FirstChild)
	return head
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Variables parses css and returns the custom properties declared on :root.
func Variables(css string) (map[string]string, error) {
	sheet, err := parser.Parse(css)
	if err != nil {
		return nil, fmt.Errorf("parse stylesheet: %w", err)
	}
	vars := make(map[string]string)
	for _, rule := range sheet.Rules {
		if !hasSelector(rule.Selectors, ":root") {
			continue
		}
		for _, decl := range rule.Declarations {
			if strings.HasPrefix(decl.Property, "--") {
				vars[decl.Property] = decl.Value
			}
		}
	}
	return vars, nil
}

func hasSelector(list []string, want string) bool {
	for _, s := range list {
		if strings.TrimSpace(s) == want {
			return true
		}
	}
	return false
}
