package domtree

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const doctypeKind Kind = 10

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// FromHTML parses static HTML and converts it to a tree rooted at the <html>
// element, the same root the browser serializer starts from.
func FromHTML(r io.Reader, baseURL string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("domtree: parse html: %w", err)
	}
	return FromDocument(doc, baseURL)
}

// FromDocument converts a parsed goquery document. Anchors get a resolved
// Link.Href the way a browser reports node.href; DisplayedText is filled for
// href-bearing elements that are not hidden, which is all the indexer reads.
func FromDocument(doc *goquery.Document, baseURL string) (Node, error) {
	base, _ := url.Parse(baseURL)
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && base != nil {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	root := doc.Find("html").First()
	if root.Length() == 0 {
		return nil, nil
	}

	c := converter{base: base}
	return c.convert(root.Nodes[0], 0, false)
}

type converter struct {
	base *url.URL
}

func (c converter) convert(n *html.Node, depth int, hidden bool) (Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	var out Node
	switch n.Type {
	case html.ElementNode:
		hidden = hidden || isHiddenElement(n)
		out = c.element(n, hidden)
	case html.TextNode:
		out = NewText(n.Data)
	case html.CommentNode:
		out = NewComment(n.Data)
	case html.DoctypeNode:
		out = &Other{Type: doctypeKind}
	default:
		return nil, nil
	}

	var children []Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		child, err := c.convert(ch, depth+1, hidden)
		if err != nil {
			return nil, err
		}
		if child != nil {
			children = append(children, child)
		}
	}
	SetChildren(out, children)
	return out, nil
}

func (c converter) element(n *html.Node, hidden bool) *Element {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		attrs[key] = a.Val
	}

	el := NewElement(strings.ToUpper(n.Data), attrs)

	href, hasHref := attrs["href"]
	if hasHref && !hidden {
		text := visibleText(n)
		el.DisplayedText = &text
	}
	if n.DataAtom == atom.A {
		el.Link = &Anchor{Text: textContent(n), Href: c.resolve(href)}
	}
	return el
}

func (c converter) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if c.base == nil {
		return ref.String()
	}
	return c.base.ResolveReference(ref).String()
}

func isHiddenElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// textContent mirrors DOM textContent: every descendant text node.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// visibleText approximates innerText: hidden subtrees are skipped.
func visibleText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode:
				if isHiddenElement(c) {
					continue
				}
				if c.DataAtom == atom.Br {
					sb.WriteString("\n")
				}
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}
