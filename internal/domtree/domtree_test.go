package domtree

import (
	"errors"
	"strings"
	"testing"
)

const sampleSnapshot = `{
  "nodeType": 1,
  "tagName": "HTML",
  "attributes": {"lang": "en"},
  "children": [
    {"nodeType": 1, "tagName": "BODY", "attributes": {}, "displayedText": "Hello",
     "children": [
        {"nodeType": 3, "textContent": "Hello"},
        {"nodeType": 8, "comment": " nav "},
        {"nodeType": 1, "tagName": "A", "attributes": {"href": "/fire/report"},
         "linkText": "Report", "linkHref": "https://x.com/fire/report", "displayedText": "Report"},
        null
     ]}
  ]
}`

func TestDecode(t *testing.T) {
	root, err := Decode([]byte(sampleSnapshot))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	html, ok := root.(*Element)
	if !ok {
		t.Fatalf("root is %T, want *Element", root)
	}
	if html.TagName != "HTML" || html.Attr("lang") != "en" {
		t.Errorf("root = %q lang=%q", html.TagName, html.Attr("lang"))
	}

	body := html.Children()[0].(*Element)
	if len(body.Children()) != 3 {
		t.Fatalf("body children = %d, want 3 (null entry skipped)", len(body.Children()))
	}
	if body.Link != nil {
		t.Errorf("body should not carry a link")
	}

	if txt, ok := body.Children()[0].(*Text); !ok || txt.Content != "Hello" {
		t.Errorf("first child = %#v, want text Hello", body.Children()[0])
	}
	if c, ok := body.Children()[1].(*Comment); !ok || c.Content != " nav " {
		t.Errorf("second child = %#v, want comment", body.Children()[1])
	}

	a := body.Children()[2].(*Element)
	if a.Link == nil || a.Link.Text != "Report" || a.Link.Href != "https://x.com/fire/report" {
		t.Errorf("anchor link = %#v", a.Link)
	}
	if a.DisplayedText == nil || *a.DisplayedText != "Report" {
		t.Errorf("anchor displayed text = %v", a.DisplayedText)
	}
}

func TestDecodePermissive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		wantNil  bool
		wantKind Kind
	}{
		{name: "Null Root", input: `null`, wantNil: true},
		{name: "Missing Fields", input: `{"nodeType": 1}`, wantKind: KindElement},
		{name: "Unknown Node Type", input: `{"nodeType": 9, "children": [{"nodeType": 1}]}`, wantKind: Kind(9)},
		{name: "Missing Node Type", input: `{}`, wantKind: Kind(0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Decode([]byte(tc.input))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if tc.wantNil {
				if n != nil {
					t.Errorf("Decode() = %#v, want nil", n)
				}
				return
			}
			if n.Kind() != tc.wantKind {
				t.Errorf("Kind() = %d, want %d", n.Kind(), tc.wantKind)
			}
		})
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"nodeType": `)); err == nil {
		t.Error("expected an error for truncated JSON")
	}
}

func TestDecodeTooDeep(t *testing.T) {
	var sb strings.Builder
	depth := MaxDepth + 2
	for i := 0; i < depth; i++ {
		sb.WriteString(`{"nodeType":1,"children":[`)
	}
	sb.WriteString(`{"nodeType":3}`)
	for i := 0; i < depth; i++ {
		sb.WriteString(`]}`)
	}

	_, err := Decode([]byte(sb.String()))
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("Decode() error = %v, want ErrTooDeep", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	text := "Docs"
	a := NewElement("A", map[string]string{"href": "/docs"})
	a.Link = &Anchor{Text: "Docs", Href: "https://x.com/docs"}
	a.DisplayedText = &text
	root := NewElement("HTML", nil, NewElement("BODY", nil, a, NewComment("c")))

	data, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if Count(got) != Count(root) {
		t.Fatalf("Count() = %d, want %d", Count(got), Count(root))
	}

	ga := got.Children()[0].Children()[0].(*Element)
	if ga.Attr("href") != "/docs" || ga.Link == nil || ga.Link.Href != "https://x.com/docs" {
		t.Errorf("anchor after encode/decode = %#v", ga)
	}
}

func TestWalkIsBreadthFirst(t *testing.T) {
	root := NewElement("ROOT", nil,
		NewElement("A1", nil, NewElement("B1", nil, NewElement("C1", nil))),
		NewElement("A2", nil, NewElement("B2", nil)),
	)

	var order []string
	var depths []int
	Walk(root, func(n Node, depth int) {
		order = append(order, n.(*Element).TagName)
		depths = append(depths, depth)
	})

	wantOrder := []string{"ROOT", "A1", "A2", "B1", "B2", "C1"}
	wantDepths := []int{0, 1, 1, 2, 2, 3}
	for i := range wantOrder {
		if order[i] != wantOrder[i] || depths[i] != wantDepths[i] {
			t.Fatalf("Walk() order = %v depths = %v, want %v %v", order, depths, wantOrder, wantDepths)
		}
	}
}

func TestWalkNilRoot(t *testing.T) {
	called := false
	Walk(nil, func(Node, int) { called = true })
	if called {
		t.Error("Walk(nil) should not call fn")
	}
}
