package domtree

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxDepth bounds the nesting accepted by Decode.
const MaxDepth = 4096

var ErrTooDeep = errors.New("domtree: snapshot nesting exceeds max depth")

// wireNode is the JSON shape produced by the capture script.
type wireNode struct {
	NodeType      int               `json:"nodeType"`
	TagName       string            `json:"tagName,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	DisplayedText *string           `json:"displayedText,omitempty"`
	LinkText      *string           `json:"linkText,omitempty"`
	LinkHref      *string           `json:"linkHref,omitempty"`
	TextContent   *string           `json:"textContent,omitempty"`
	Comment       *string           `json:"comment,omitempty"`
	BeforeContent string            `json:"beforeContent,omitempty"`
	AfterContent  string            `json:"afterContent,omitempty"`
	Children      []*wireNode       `json:"children,omitempty"`
}

// Decode parses a serialized snapshot. Missing fields decode to zero values
// and a node without children is a leaf. A JSON null yields a nil Node.
func Decode(data []byte) (Node, error) {
	var w *wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("domtree: decode snapshot: %w", err)
	}
	if w == nil {
		return nil, nil
	}
	return fromWire(w, 0)
}

func fromWire(w *wireNode, depth int) (Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	var children []Node
	if len(w.Children) > 0 {
		children = make([]Node, 0, len(w.Children))
	}
	for _, c := range w.Children {
		if c == nil {
			continue
		}
		child, err := fromWire(c, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	b := branch{Nodes: children}

	switch Kind(w.NodeType) {
	case KindElement:
		el := &Element{
			branch:        b,
			TagName:       w.TagName,
			Attributes:    w.Attributes,
			DisplayedText: w.DisplayedText,
			BeforeContent: w.BeforeContent,
			AfterContent:  w.AfterContent,
		}
		if w.LinkText != nil || w.LinkHref != nil {
			el.Link = &Anchor{Text: deref(w.LinkText), Href: deref(w.LinkHref)}
		}
		return el, nil
	case KindText:
		return &Text{branch: b, Content: deref(w.TextContent)}, nil
	case KindComment:
		return &Comment{branch: b, Content: deref(w.Comment)}, nil
	default:
		return &Other{branch: b, Type: Kind(w.NodeType)}, nil
	}
}

// Encode writes n in the snapshot JSON shape, indented for humans.
func Encode(n Node) ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	w, err := toWire(n, 0)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(w, "", "  ")
}

func toWire(n Node, depth int) (*wireNode, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	w := &wireNode{NodeType: int(n.Kind())}

	switch v := n.(type) {
	case *Element:
		w.TagName = v.TagName
		w.Attributes = v.Attributes
		if w.Attributes == nil {
			w.Attributes = map[string]string{}
		}
		w.DisplayedText = v.DisplayedText
		if v.Link != nil {
			w.LinkText = &v.Link.Text
			w.LinkHref = &v.Link.Href
		}
		w.BeforeContent = v.BeforeContent
		w.AfterContent = v.AfterContent
	case *Text:
		w.TextContent = &v.Content
	case *Comment:
		w.Comment = &v.Content
	}

	for _, c := range n.Children() {
		if c == nil {
			continue
		}
		cw, err := toWire(c, depth+1)
		if err != nil {
			return nil, err
		}
		w.Children = append(w.Children, cw)
	}
	return w, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
