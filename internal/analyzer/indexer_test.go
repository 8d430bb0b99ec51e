package analyzer

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"link-level-analyzer/internal/domtree"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func anchor(href, text string) *domtree.Element {
	el := domtree.NewElement("A", map[string]string{"href": href})
	el.Link = &domtree.Anchor{Text: text}
	return el
}

func div(children ...domtree.Node) *domtree.Element {
	return domtree.NewElement("DIV", nil, children...)
}

func TestIndexLevels(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	testCases := []struct {
		name    string
		root    domtree.Node
		baseURL string
		want    LinkLevels
	}{
		{
			name:    "Empty Tree",
			root:    nil,
			baseURL: "https://x.com",
			want:    nil,
		},
		{
			name:    "Root Without Href",
			root:    domtree.NewElement("HTML", nil),
			baseURL: "https://x.com",
			want:    nil,
		},
		{
			name: "Relative And Absolute",
			root: div(
				anchor("/fire/report", "Report"),
				anchor("https://other.com/fire", "Other"),
				anchor("//cdn.x.com/lib", "CDN"),
			),
			baseURL: "https://x.com/news/",
			want: LinkLevels{
				{Depth: 1, Links: []RawLink{
					{URL: "https://x.com/fire/report", Text: "Report", Tag: "A", Depth: 1, ElementType: "anchor"},
					{URL: "https://other.com/fire", Text: "Other", Tag: "A", Depth: 1, ElementType: "anchor"},
					{URL: "//cdn.x.com/lib", Text: "CDN", Tag: "A", Depth: 1, ElementType: "anchor"},
				}},
			},
		},
		{
			name: "Dot Segments",
			root: div(
				anchor("../up", "Up"),
				anchor("same", "Same"),
			),
			baseURL: "https://x.com/a/b/page.html",
			want: LinkLevels{
				{Depth: 1, Links: []RawLink{
					{URL: "https://x.com/a/up", Text: "Up", Tag: "A", Depth: 1, ElementType: "anchor"},
					{URL: "https://x.com/a/b/same", Text: "Same", Tag: "A", Depth: 1, ElementType: "anchor"},
				}},
			},
		},
		{
			name: "Skipped Hrefs",
			root: div(
				anchor("#section2", "Jump"),
				anchor("javascript:void(0)", "JS"),
				anchor("/logo.PNG", "Logo"),
				anchor("/icon.svg", "Icon"),
				anchor("   ", "Blank"),
				domtree.NewElement("A", nil),
			),
			baseURL: "https://x.com",
			want:    nil,
		},
		{
			name: "Non Anchor Element",
			root: div(
				domtree.NewElement("LINK", map[string]string{"href": "/feed", "title": "  RSS   feed "}),
			),
			baseURL: "https://x.com",
			want: LinkLevels{
				{Depth: 1, Links: []RawLink{
					{URL: "https://x.com/feed", Text: "RSS feed", Tag: "LINK", Depth: 1, ElementType: "element_with_href"},
				}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IndexLevels(ctx, logger, tc.root, tc.baseURL)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("IndexLevels() got = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestIndexLevelsDepthIsLevelOrder(t *testing.T) {
	// A deep left subtree must not push the right-hand link deeper.
	root := domtree.NewElement("HTML", nil,
		div(div(div(div(anchor("/deep", "Deep"))))),
		anchor("/shallow", "Shallow"),
		div(anchor("/two", "Two")),
	)

	levels := IndexLevels(context.Background(), newTestLogger(), root, "https://x.com")

	wantDepths := map[string]int{
		"https://x.com/shallow": 1,
		"https://x.com/two":     2,
		"https://x.com/deep":    5,
	}
	if got := levels.Depths(); !reflect.DeepEqual(got, []int{1, 2, 5}) {
		t.Fatalf("Depths() = %v, want [1 2 5]", got)
	}
	for _, lvl := range levels {
		for _, link := range lvl.Links {
			if link.Depth != lvl.Depth {
				t.Errorf("link %s has depth %d inside level %d", link.URL, link.Depth, lvl.Depth)
			}
			if want := wantDepths[link.URL]; link.Depth != want {
				t.Errorf("link %s depth = %d, want %d", link.URL, link.Depth, want)
			}
		}
	}
}

func TestIndexLevelsKeepsDuplicates(t *testing.T) {
	root := div(anchor("/news", "News"), anchor("/news", "All the news"))

	levels := IndexLevels(context.Background(), newTestLogger(), root, "https://x.com")
	if got := len(levels.Get(1)); got != 2 {
		t.Errorf("links at depth 1 = %d, want 2", got)
	}
}

func TestLinkText(t *testing.T) {
	displayed := "  Visible\n text "
	blank := "   "

	testCases := []struct {
		name string
		el   *domtree.Element
		want string
	}{
		{
			name: "Anchor Text Wins",
			el: func() *domtree.Element {
				el := anchor("/a", " Anchor  text ")
				el.DisplayedText = &displayed
				return el
			}(),
			want: "Anchor text",
		},
		{
			name: "Blank Anchor Text Falls Through",
			el: func() *domtree.Element {
				el := anchor("/a", "  \n ")
				el.DisplayedText = &displayed
				return el
			}(),
			want: "Visible text",
		},
		{
			name: "Title Attribute",
			el: func() *domtree.Element {
				el := domtree.NewElement("AREA", map[string]string{"href": "/a", "title": "Map area"})
				el.DisplayedText = &blank
				return el
			}(),
			want: "Map area",
		},
		{
			name: "Placeholder",
			el:   domtree.NewElement("A", map[string]string{"href": "/a"}),
			want: "[No text]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := linkText(tc.el); got != tc.want {
				t.Errorf("linkText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIndexLevelsDoesNotMutateTree(t *testing.T) {
	root := div(anchor("/a", "A"), domtree.NewText("hello"))
	before, err := domtree.Encode(root)
	if err != nil {
		t.Fatal(err)
	}

	IndexLevels(context.Background(), newTestLogger(), root, "https://x.com")

	after, err := domtree.Encode(root)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("IndexLevels() modified the input tree")
	}
}
