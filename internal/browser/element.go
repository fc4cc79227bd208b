package browser

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// handle is the live counterpart of a snapshot element.
type handle interface {
	click(ctx context.Context) error
	child(selector string, index int, node *html.Node) handle
}

// Element is a snapshot of one DOM element and its subtree.
type Element struct {
	sel  *goquery.Selection
	live handle
}

// Elements is an ordered list of matches.
type Elements []*Element

// NewElement wraps a goquery selection of a single node. Elements built this
// way cannot be clicked.
func NewElement(sel *goquery.Selection) *Element {
	return &Element{sel: sel.First()}
}

func newElements(sel *goquery.Selection, live func(i int, node *html.Node) handle) Elements {
	out := make(Elements, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		var h handle
		if live != nil {
			h = live(i, s.Get(0))
		}
		out = append(out, &Element{sel: s, live: h})
	})
	return out
}

// Selection exposes the underlying goquery selection.
func (e *Element) Selection() *goquery.Selection {
	return e.sel
}

// RawText returns textContent, including hidden text.
func (e *Element) RawText() string {
	return e.sel.Text()
}

// Text returns textContent with tabs and newlines flattened to spaces and
// surrounding whitespace trimmed.
func (e *Element) Text() string {
	return Clean(e.sel.Text())
}

// Attr returns the attribute value, or "" when absent.
func (e *Element) Attr(name string) string {
	return e.sel.AttrOr(name, "")
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.sel.Attr(name)
	return ok
}

// HTML returns the outer HTML of the snapshot.
func (e *Element) HTML() string {
	out, err := goquery.OuterHtml(e.sel)
	if err != nil {
		return ""
	}
	return out
}

// Find queries descendants of the element.
func (e *Element) Find(selector string) Elements {
	return newElements(e.sel.Find(selector), func(i int, node *html.Node) handle {
		if e.live == nil {
			return nil
		}
		return e.live.child(selector, i, node)
	})
}

// Has reports whether any descendant matches selector.
func (e *Element) Has(selector string) bool {
	return e.sel.Find(selector).Length() > 0
}

// Is reports whether the element itself matches selector.
func (e *Element) Is(selector string) bool {
	return e.sel.Is(selector)
}

// First returns the first descendant matching selector.
func (e *Element) First(selector string) (*Element, error) {
	found := e.Find(selector)
	if len(found) == 0 {
		return nil, NotFoundError(selector)
	}
	return found[0], nil
}

// TextOf returns the cleaned text of the first descendant matching selector.
func (e *Element) TextOf(selector string) (string, error) {
	el, err := e.First(selector)
	if err != nil {
		return "", err
	}
	return el.Text(), nil
}

// OptTextOf is TextOf returning "" when nothing matches.
func (e *Element) OptTextOf(selector string) string {
	s, _ := e.TextOf(selector)
	return s
}

// AttrOf returns an attribute of the first descendant matching selector.
// A missing element is an error; a missing attribute is "".
func (e *Element) AttrOf(selector, name string) (string, error) {
	el, err := e.First(selector)
	if err != nil {
		return "", err
	}
	return el.Attr(name), nil
}

// OptAttrOf is AttrOf returning "" when nothing matches.
func (e *Element) OptAttrOf(selector, name string) string {
	s, _ := e.AttrOf(selector, name)
	return s
}

// Parent returns the parent element inside the snapshot, or nil at the
// snapshot root.
func (e *Element) Parent() *Element {
	p := e.sel.Parent()
	if p.Length() == 0 || p.Get(0).Type != html.ElementNode {
		return nil
	}
	return &Element{sel: p}
}

// Click activates the live element.
func (e *Element) Click(ctx context.Context) error {
	if e.live == nil {
		return ErrUnsupported
	}
	return e.live.click(ctx)
}

// Texts returns the cleaned text of every element.
func (els Elements) Texts() []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = el.Text()
	}
	return out
}

// First returns the first element or ErrElementNotFound.
func (els Elements) First() (*Element, error) {
	if len(els) == 0 {
		return nil, ErrElementNotFound
	}
	return els[0], nil
}

// Filter keeps the elements for which keep returns true.
func (els Elements) Filter(keep func(*Element) bool) Elements {
	out := make(Elements, 0, len(els))
	for _, el := range els {
		if keep(el) {
			out = append(out, el)
		}
	}
	return out
}

// Clean trims s and flattens tabs and newlines to single spaces.
func Clean(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r', ' ':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
