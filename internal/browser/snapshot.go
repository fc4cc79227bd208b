package browser

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// serialNode is the page-side serialization of a DOM subtree: an element
// {n, a, c} or a text node {t}.
type serialNode struct {
	Name     string       `json:"n,omitempty"`
	Attrs    [][2]string  `json:"a,omitempty"`
	Children []serialNode `json:"c,omitempty"`
	Text     *string      `json:"t,omitempty"`
}

// serialMatch is one element returned by the query script.
type serialMatch struct {
	ID   int        `json:"id"`
	Tree serialNode `json:"tree"`
}

func (n serialNode) build() *html.Node {
	if n.Text != nil {
		return &html.Node{Type: html.TextNode, Data: *n.Text}
	}
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Name,
		DataAtom: atom.Lookup([]byte(n.Name)),
	}
	for _, kv := range n.Attrs {
		node.Attr = append(node.Attr, html.Attribute{Key: kv[0], Val: kv[1]})
	}
	for _, c := range n.Children {
		node.AppendChild(c.build())
	}
	return node
}

// selection rebuilds the subtree and returns it as a goquery selection of
// its root element.
func (n serialNode) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(n.build()).Selection
}
