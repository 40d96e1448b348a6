package search

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripHTML removes markup from a search result snippet. Providers wrap
// matched query terms in tags like <strong> or <b>; the agent only
// needs the text.
func StripHTML(snippet string) string {
	if !strings.ContainsRune(snippet, '<') {
		return snippet
	}

	// Parse as a fragment inside a body so bare inline tags are handled.
	nodes, err := html.ParseFragment(strings.NewReader(snippet), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return snippet
	}

	var b strings.Builder
	for _, n := range nodes {
		collectText(n, &b)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// collectText appends the text content of n and its children to b.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
