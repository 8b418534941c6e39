// Package content converts captured page HTML into Markdown suitable for
// retrieval pipelines. It runs a readability pass to isolate the article
// body and falls back to DOM cleanup when readability yields nothing.
package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// excessiveLinesRe collapses runs of blank lines in converted markdown.
var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// nonContentSelector matches elements stripped before fallback conversion.
const nonContentSelector = "script, style, noscript, iframe, object, embed, " +
	"nav, header, footer, aside, form, input, button"

// Result contains the outcome of an HTML to Markdown conversion.
type Result struct {
	Title    string
	Markdown string
}

// Converter converts rendered page HTML to Markdown.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a new HTML to Markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)

	// GitHub-flavored output keeps tables and fenced code blocks intact
	converter.Use(plugin.GitHubFlavored())

	return &Converter{
		converter: converter,
	}
}

// Convert transforms page HTML into Markdown. pageURL is used by the
// readability pass to resolve relative references.
func (c *Converter) Convert(pageHTML, pageURL string) (*Result, error) {
	pageHTML = strings.TrimSpace(pageHTML)
	if pageHTML == "" {
		return &Result{}, nil
	}

	title := extractHTMLTitle(pageHTML)

	body := applyReadability(pageHTML, pageURL)
	if body == "" {
		body = stripNonContent(pageHTML)
	}

	markdown, err := c.converter.ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	markdown = cleanMarkdown(markdown)

	// If no title found in HTML, try to extract from markdown
	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	return &Result{
		Title:    title,
		Markdown: markdown,
	}, nil
}

// applyReadability runs a readability-style extractor on the document and
// returns the article HTML. Returns an empty string if readability fails
// or yields nothing usable.
func applyReadability(documentHTML, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(documentHTML), parsedURL)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.Content)
}

// stripNonContent removes non-content elements and returns the body HTML.
// Used when readability cannot identify an article.
func stripNonContent(documentHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(documentHTML))
	if err != nil {
		return documentHTML
	}

	doc.Find(nonContentSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return documentHTML
	}

	bodyHTML, err := body.Html()
	if err != nil {
		return documentHTML
	}

	return bodyHTML
}

// extractHTMLTitle extracts the title element text from the document.
func extractHTMLTitle(documentHTML string) string {
	doc, err := html.Parse(strings.NewReader(documentHTML))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			extract(c)
		}
	}
	extract(doc)

	return title
}

// cleanMarkdown cleans up converted markdown.
func cleanMarkdown(content string) string {
	// Collapse runs of four or more newlines down to three, leaving at
	// most two blank lines between blocks
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	// Remove trailing whitespace from lines
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

// extractMarkdownTitle extracts the first H1 heading from markdown.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
