package capture

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const minVisibleText = 200

var spaShellMarkers = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// IsSufficient guesses whether static HTML already holds the page content,
// so a browser render is not needed.
func IsSufficient(html []byte) bool {
	if len(html) < 256 {
		return false
	}

	lower := bytes.ToLower(html)
	for _, marker := range spaShellMarkers {
		if bytes.Contains(lower, []byte(marker)) {
			return false
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return false
	}
	doc.Find("script, style, noscript, template").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) < minVisibleText {
		return false
	}

	return doc.Find("a[href]").Length() > 0
}
