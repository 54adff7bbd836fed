package render

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"profilecard/internal/style"
)

// ContainerClasses are the host's placeholder container classes. A created
// fallback container carries them too so host layout rules still apply.
const ContainerClasses = "container-0-2-102 section-content flex justify-content-between"

var containerSel = cascadia.MustCompile(".container-0-2-102.section-content")

// Target is the region the card is mounted into. Mount replaces everything
// previously in the region.
type Target interface {
	Mount(content Node, classes ...string)
}

// DocumentTarget mounts into a parsed host document.
type DocumentTarget struct {
	Doc *html.Node
}

// Claim finds the host container, or creates one at the top of body, clears
// it and tags it with the card id. Previous content is discarded
// unconditionally.
func (t DocumentTarget) Claim() *html.Node {
	c := containerSel.MatchFirst(t.Doc)
	if c == nil {
		c = &html.Node{
			Type:     html.ElementNode,
			Data:     "div",
			DataAtom: atom.Div,
			Attr:     []html.Attribute{{Key: "class", Val: ContainerClasses}},
		}
		body := bodyOf(t.Doc)
		body.InsertBefore(c, body.FirstChild)
	}
	for c.FirstChild != nil {
		c.RemoveChild(c.FirstChild)
	}
	setAttr(c, "id", style.ContainerID)
	return c
}

func (t DocumentTarget) Mount(content Node, classes ...string) {
	c := t.Claim()
	cls := strings.Fields(getAttr(c, "class"))
	cls = removeClasses(cls, "compact", "error")
	cls = append(cls, classes...)
	setAttr(c, "class", strings.Join(cls, " "))
	c.AppendChild(content.HTML())
}

func bodyOf(doc *html.Node) *html.Node {
	if b := findTag(doc, "body"); b != nil {
		return b
	}
	root := findTag(doc, "html")
	if root == nil {
		root = &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
		doc.AppendChild(root)
	}
	b := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	root.AppendChild(b)
	return b
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findTag(c, tag); f != nil {
			return f
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeClasses(list []string, drop ...string) []string {
	out := list[:0]
	for _, c := range list {
		keep := true
		for _, d := range drop {
			if c == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

// Recorder is a Target that keeps the last mount, for callers that want
// the markup without a document.
type Recorder struct {
	Mounts  int
	Content Node
	Classes []string
}

func (r *Recorder) Mount(content Node, classes ...string) {
	r.Mounts++
	r.Content = content
	r.Classes = append([]string(nil), classes...)
}
