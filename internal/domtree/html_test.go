package domtree

import (
	"strings"
	"testing"
)

func findElements(root Node, tag string) []*Element {
	var out []*Element
	Walk(root, func(n Node, _ int) {
		if el, ok := n.(*Element); ok && el.TagName == tag {
			out = append(out, el)
		}
	})
	return out
}

func TestFromHTML(t *testing.T) {
	htmlContent := `<!DOCTYPE html>
<html>
<head><link rel="stylesheet" href="/main.css"></head>
<body>
  <!-- menu -->
  <nav>
    <a href="/fire/report"> Fire   report </a>
    <a href="docs/intro" style="display: none">Hidden</a>
    <a href="https://other.com/page"><script>var x;</script>Other</a>
  </nav>
</body>
</html>`

	root, err := FromHTML(strings.NewReader(htmlContent), "https://x.com/section/")
	if err != nil {
		t.Fatalf("FromHTML() error = %v", err)
	}

	el, ok := root.(*Element)
	if !ok || el.TagName != "HTML" {
		t.Fatalf("root = %#v, want HTML element", root)
	}

	anchors := findElements(root, "A")
	if len(anchors) != 3 {
		t.Fatalf("found %d anchors, want 3", len(anchors))
	}

	testCases := []struct {
		name          string
		el            *Element
		wantHref      string
		wantDisplayed string
		wantHidden    bool
	}{
		{name: "Root Relative", el: anchors[0], wantHref: "https://x.com/fire/report", wantDisplayed: " Fire   report "},
		{name: "Hidden Relative", el: anchors[1], wantHref: "https://x.com/section/docs/intro", wantHidden: true},
		{name: "Absolute With Script", el: anchors[2], wantHref: "https://other.com/page", wantDisplayed: "Other"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.el.Link == nil {
				t.Fatal("anchor has no link")
			}
			if tc.el.Link.Href != tc.wantHref {
				t.Errorf("Link.Href = %q, want %q", tc.el.Link.Href, tc.wantHref)
			}
			if tc.wantHidden {
				if tc.el.DisplayedText != nil {
					t.Errorf("DisplayedText = %q, want nil", *tc.el.DisplayedText)
				}
				return
			}
			if tc.el.DisplayedText == nil || *tc.el.DisplayedText != tc.wantDisplayed {
				t.Errorf("DisplayedText = %v, want %q", tc.el.DisplayedText, tc.wantDisplayed)
			}
		})
	}

	links := findElements(root, "LINK")
	if len(links) != 1 || links[0].DisplayedText != nil {
		t.Errorf("stylesheet link in head should have no displayed text: %#v", links)
	}

	comments := 0
	Walk(root, func(n Node, _ int) {
		if n.Kind() == KindComment {
			comments++
		}
	})
	if comments != 1 {
		t.Errorf("comments = %d, want 1", comments)
	}
}

func TestFromHTMLBaseElement(t *testing.T) {
	htmlContent := `<html><head><base href="/blog/"></head><body><a href="post-1">Post</a></body></html>`

	root, err := FromHTML(strings.NewReader(htmlContent), "https://x.com/index.html")
	if err != nil {
		t.Fatalf("FromHTML() error = %v", err)
	}

	anchors := findElements(root, "A")
	if len(anchors) != 1 {
		t.Fatalf("found %d anchors, want 1", len(anchors))
	}
	if got := anchors[0].Link.Href; got != "https://x.com/blog/post-1" {
		t.Errorf("Link.Href = %q, want %q", got, "https://x.com/blog/post-1")
	}
}

func TestFromHTMLEmptyDocument(t *testing.T) {
	root, err := FromHTML(strings.NewReader(""), "https://x.com")
	if err != nil {
		t.Fatalf("FromHTML() error = %v", err)
	}
	// The HTML parser always synthesises html/head/body.
	if root == nil || len(findElements(root, "A")) != 0 {
		t.Errorf("unexpected tree for empty document: %#v", root)
	}
}
