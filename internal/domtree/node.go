// Package domtree models a DOM tree captured from a rendered page.
//
// A tree is made of Element, Text, Comment and Other nodes. Every variant
// keeps its children in document order.
package domtree

type Kind int

// Values match the DOM nodeType constants emitted by the capture script.
const (
	KindElement Kind = 1
	KindText    Kind = 3
	KindComment Kind = 8
)

// Node is implemented by Element, Text, Comment and Other only.
type Node interface {
	Kind() Kind
	Children() []Node
	sealed()
}

type branch struct {
	Nodes []Node
}

func (b branch) Children() []Node { return b.Nodes }
func (branch) sealed()            {}

// Anchor carries what the browser reports for an <a> element.
type Anchor struct {
	Text string
	Href string
}

type Element struct {
	branch
	TagName    string
	Attributes map[string]string
	// DisplayedText is the rendered inner text. Nil when the element was hidden
	// or the text was not captured.
	DisplayedText *string
	Link          *Anchor
	BeforeContent string
	AfterContent  string
}

func (*Element) Kind() Kind { return KindElement }

// Attr returns the attribute value, or "" when absent.
func (e *Element) Attr(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}

type Text struct {
	branch
	Content string
}

func (*Text) Kind() Kind { return KindText }

type Comment struct {
	branch
	Content string
}

func (*Comment) Kind() Kind { return KindComment }

// Other holds node types nothing downstream inspects (document, doctype,
// CDATA, processing instructions). Its children are still walked.
type Other struct {
	branch
	Type Kind
}

func (o *Other) Kind() Kind { return o.Type }

// NewElement builds an element with the given children.
func NewElement(tag string, attrs map[string]string, children ...Node) *Element {
	return &Element{branch: branch{Nodes: children}, TagName: tag, Attributes: attrs}
}

func NewText(content string) *Text {
	return &Text{Content: content}
}

func NewComment(content string) *Comment {
	return &Comment{Content: content}
}

// SetChildren replaces the children of n. It is meant for tree construction
// only; analysis code never mutates a tree.
func SetChildren(n Node, children []Node) {
	switch v := n.(type) {
	case *Element:
		v.Nodes = children
	case *Text:
		v.Nodes = children
	case *Comment:
		v.Nodes = children
	case *Other:
		v.Nodes = children
	}
}

// Walk visits the tree breadth-first. fn receives each node with its depth,
// the root being depth 0. Nil children are skipped.
func Walk(root Node, fn func(n Node, depth int)) {
	if root == nil {
		return
	}

	type item struct {
		node  Node
		depth int
	}

	queue := []item{{root, 0}}
	for len(queue) > 0 {
		it := queue[0]
		queue[0] = item{}
		queue = queue[1:]

		fn(it.node, it.depth)

		for _, child := range it.node.Children() {
			if child == nil {
				continue
			}
			queue = append(queue, item{child, it.depth + 1})
		}
	}
}

// Count returns the number of nodes in the tree.
func Count(root Node) int {
	n := 0
	Walk(root, func(Node, int) { n++ })
	return n
}
