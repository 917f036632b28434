package render

import (
	"bytes"
	"html"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	mdhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			mdhtml.WithHardWraps(),
			// raw HTML is kept here and cleaned by policy below
			mdhtml.WithUnsafe(),
		),
	)
	policy      = newPolicy()
	stripPolicy = bluemonday.StripTagsPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "span")
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	return p
}

// MarkdownToHTML converts post text to sanitized HTML.
func MarkdownToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}

// Markdown is the template function form of MarkdownToHTML. On conversion
// failure it falls back to the escaped text.
func Markdown(text string) template.HTML {
	out, err := MarkdownToHTML(text)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(out)
}

// StripHTML removes every tag, leaving unescaped plain text for templates
// to escape once.
func StripHTML(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// Date formats a publication timestamp for display
func Date(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// Funcs returns the functions available to every page template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"plain":    StripHTML,
		"date":     Date,
	}
}
