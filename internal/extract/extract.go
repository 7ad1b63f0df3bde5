package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Document is a parsed page together with its flattened visible text.
type Document struct {
	Tree *goquery.Document
	// Text is every visible text node joined by single spaces, NFKC-normalized.
	Text string
}

// FromHTML parses input into a Document. The html parser is lenient, so only
// a reader failure can produce an error.
func FromHTML(input []byte) (*Document, error) {
	tree, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	for _, n := range tree.Nodes {
		collectText(&b, n)
	}
	return &Document{Tree: tree, Text: normalizeText(b.String())}, nil
}

// FromText wraps plain text (no markup) as a Document with no table rows.
func FromText(text string) *Document {
	tree, _ := goquery.NewDocumentFromReader(strings.NewReader(""))
	return &Document{Tree: tree, Text: normalizeText(text)}
}

func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		// Adjacent cells must not fuse into one token.
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// selectionText is the whitespace-collapsed visible text of s.
func selectionText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		collectText(&b, n)
	}
	return normalizeText(b.String())
}

// normalizeText folds compatibility characters (no-break spaces, full-width
// digits) and collapses whitespace runs to single spaces.
func normalizeText(s string) string {
	return collapseSpaces(norm.NFKC.String(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
