package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"
)

// GoqueryExtractor is the concrete Extractor this repository ships by
// default: it pulls title/author/body text out of common HTML metadata
// and semantic elements with goquery's jQuery-style selectors.
type GoqueryExtractor struct{}

// NewGoqueryExtractor returns the default Extractor.
func NewGoqueryExtractor() *GoqueryExtractor { return &GoqueryExtractor{} }

func (GoqueryExtractor) Extract(rawHTML, sourceURL string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)

	author := firstNonEmpty(
		metaContent(doc, `meta[name="author"]`),
		metaContent(doc, `meta[property="article:author"]`),
		doc.Find(`[rel="author"]`).First().Text(),
	)

	lang := detectLanguage(doc)

	doc.Find("script, style, nav, footer, header, aside").Remove()

	body := doc.Find("article").First()
	if body.Length() == 0 {
		body = doc.Find("main").First()
	}
	if body.Length() == 0 {
		body = doc.Find("body").First()
	}

	text := normalizeWhitespace(body.Text())
	wordCount := len(strings.Fields(text))

	return &Result{
		Title:     strings.TrimSpace(title),
		Author:    strings.TrimSpace(author),
		Text:      text,
		Language:  strings.TrimSpace(lang),
		WordCount: wordCount,
	}, nil
}

// detectLanguage reads the page's declared language from the <html lang>
// attribute or a content-language meta tag and canonicalizes it through
// golang.org/x/text/language so callers get a consistent BCP 47 tag
// ("en", "pt-BR") instead of whatever casing/format the source page used.
// An unparseable or absent declaration yields an empty string rather than
// a guess — this repo does not attempt statistical language detection.
func detectLanguage(doc *goquery.Document) string {
	raw, _ := doc.Find("html").Attr("lang")
	if raw == "" {
		raw = metaContent(doc, `meta[http-equiv="content-language"]`)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return tag.String()
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
