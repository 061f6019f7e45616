package fetcher

import (
	"html"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// sniffLen is how far into a body a <meta charset> declaration is looked for.
const sniffLen = 2048

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([a-zA-Z0-9_\-]+)`)

	// Elements whose content is never document text.
	dropBlockRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b.*?</(script|style|noscript)>`)
	commentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)

	// Tags that end a visual line.
	lineBreakRe = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|tr|h[1-6]|table|section|article|blockquote|pre)>`)
	tagRe       = regexp.MustCompile(`(?s)<[^>]*>`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// Charset returns the declared charset of a body: the Content-Type
// parameter first, then a <meta> declaration near the start. Undeclared
// bodies that are not valid UTF-8 are assumed to be GB18030, the superset
// of the GBK and GB2312 encodings older government portals still serve.
func Charset(contentType string, body []byte) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := strings.TrimSpace(params["charset"]); cs != "" {
			return strings.ToLower(cs)
		}
	}
	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if m := metaCharsetRe.FindSubmatch(head); m != nil {
		return strings.ToLower(string(m[1]))
	}
	if utf8.Valid(body) {
		return "utf-8"
	}
	return "gb18030"
}

// DecodeText converts body to UTF-8 using its declared or sniffed charset.
func DecodeText(contentType string, body []byte) (string, error) {
	cs := Charset(contentType, body)
	if cs == "utf-8" || cs == "utf8" {
		return strings.ToValidUTF8(string(body), ""), nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: unsupported charset %q", cs)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: decode %s", cs)
	}
	return string(out), nil
}

// IsHTML reports whether a page should be stripped of markup.
func IsHTML(contentType string, text string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt == "text/html" || mt == "application/xhtml+xml"
	}
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "<") && strings.Contains(strings.ToLower(t[:min(len(t), sniffLen)]), "<html")
}

// HTMLToText strips markup from an HTML page, keeping one line per block
// element.
func HTMLToText(doc string) string {
	doc = dropBlockRe.ReplaceAllString(doc, "")
	doc = commentRe.ReplaceAllString(doc, "")
	doc = lineBreakRe.ReplaceAllString(doc, "\n")
	doc = tagRe.ReplaceAllString(doc, "")
	doc = html.UnescapeString(doc)
	doc = strings.ReplaceAll(doc, "\u00a0", " ")

	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	doc = strings.Join(lines, "\n")
	doc = blankRunRe.ReplaceAllString(doc, "\n\n")
	return strings.TrimSpace(doc)
}

// PageText decodes a fetched page and strips markup when it is HTML.
func PageText(p *Page) (string, error) {
	text, err := DecodeText(p.ContentType, p.Body)
	if err != nil {
		return "", err
	}
	if IsHTML(p.ContentType, text) {
		return HTMLToText(text), nil
	}
	return text, nil
}
