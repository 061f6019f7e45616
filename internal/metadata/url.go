package metadata

import (
	"net/url"
	"path"
	"strings"

	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

const unknownDomain = "unknown"

var governmentMarkers = []string{".gov.cn", ".gov.", "government", "ministry", "bureau"}

// docTypes maps URL path extensions to document types.
var docTypes = map[string]string{
	".pdf":   "pdf",
	".html":  "html",
	".htm":   "html",
	".shtml": "html",
	".doc":   "doc",
	".docx":  "docx",
	".txt":   "txt",
}

const defaultDocType = "html"

type urlAnalysis struct {
	domain     string
	government bool
	pathDepth  int
	hasQuery   bool
}

func analyzeURL(raw string) urlAnalysis {
	u, err := url.Parse(raw)
	if err != nil {
		return urlAnalysis{domain: unknownDomain}
	}

	ua := urlAnalysis{
		domain:   u.Host,
		hasQuery: u.RawQuery != "",
	}
	if ua.domain == "" {
		ua.domain = unknownDomain
	} else {
		lower := strings.ToLower(ua.domain)
		for _, marker := range governmentMarkers {
			if strings.Contains(lower, marker) {
				ua.government = true
				break
			}
		}
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			ua.pathDepth++
		}
	}
	return ua
}

// titleFromURL derives a title from the last path segment, rejecting
// segments that carry no meaning (numeric IDs, very short names).
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	seg = strings.NewReplacer("_", " ", "-", " ").Replace(seg)
	seg = strings.Join(strings.Fields(seg), " ")

	if numericRe.MatchString(seg) || textproc.RuneLen(seg) < minTitleChars {
		return ""
	}
	return seg
}

func docTypeFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return defaultDocType
	}
	if t, ok := docTypes[strings.ToLower(path.Ext(u.Path))]; ok {
		return t
	}
	return defaultDocType
}
