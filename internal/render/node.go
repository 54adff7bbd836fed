package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is a markup description independent of any live document. A Node
// with an empty Tag is a text node.
type Node struct {
	Tag      string
	Attrs    []html.Attribute
	Text     string
	Children []Node
}

// El builds an element. attrs are key/value pairs.
func El(tag string, attrs []string, children ...Node) Node {
	n := Node{Tag: tag, Children: children}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Txt builds a text node. Its content is always escaped on output.
func Txt(s string) Node { return Node{Text: s} }

// A is shorthand for attribute lists.
func A(kv ...string) []string { return kv }

// Class returns the class attribute of n.
func (n Node) Class() string {
	for _, a := range n.Attrs {
		if a.Key == "class" {
			return a.Val
		}
	}
	return ""
}

// HTML converts the description into detached x/net/html nodes.
func (n Node) HTML() *html.Node {
	if n.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
		Attr:     append([]html.Attribute(nil), n.Attrs...),
	}
	for _, c := range n.Children {
		el.AppendChild(c.HTML())
	}
	return el
}

// String renders n as HTML.
func (n Node) String() string {
	var b strings.Builder
	_ = html.Render(&b, n.HTML())
	return b.String()
}

// Find returns the first node in n (depth first, n included) whose class
// list contains class.
func (n Node) Find(class string) (Node, bool) {
	for _, c := range strings.Fields(n.Class()) {
		if c == class {
			return n, true
		}
	}
	for _, child := range n.Children {
		if found, ok := child.Find(class); ok {
			return found, true
		}
	}
	return Node{}, false
}

// TextContent concatenates every text node under n.
func (n Node) TextContent() string {
	if n.Tag == "" {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}
