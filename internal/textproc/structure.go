package textproc

import (
	"regexp"
	"strings"
)

// Structure tags prefixed to lines that open a regulatory unit.
const (
	TagChapter = "[CHAPTER]"
	TagSection = "[SECTION]"
	TagArticle = "[ARTICLE]"
	TagItem    = "[ITEM]"
	TagList    = "[LIST]"
	TagBullet  = "[BULLET]"
)

const chineseNumerals = `[一二三四五六七八九十百千零〇两\d]+`

// structureRule tags a line whose start matches re. Rules are tried in
// order; first match wins.
type structureRule struct {
	tag string
	re  *regexp.Regexp
}

var structureRules = []structureRule{
	{TagChapter, regexp.MustCompile(`^第` + chineseNumerals + `章`)},
	{TagSection, regexp.MustCompile(`^第` + chineseNumerals + `节`)},
	{TagArticle, regexp.MustCompile(`^第` + chineseNumerals + `条`)},
	{TagItem, regexp.MustCompile(`^[(（]` + chineseNumerals + `[)）]`)},
	{TagList, regexp.MustCompile(`^\d+[.、]`)},
	{TagBullet, regexp.MustCompile(`^[-•·]`)},
}

var allTags = []string{TagChapter, TagSection, TagArticle, TagItem, TagList, TagBullet}

// tagRe matches a structure tag and its trailing space anywhere in text.
var tagRe = regexp.MustCompile(`\[(?:CHAPTER|SECTION|ARTICLE|ITEM|LIST|BULLET)\] ?`)

// stripTags removes structure tags so they do not count as content.
func stripTags(text string) string {
	return tagRe.ReplaceAllString(text, "")
}

// Unanchored forms of the structure patterns, used to find split points
// inside long sentences and to collect key terms.
var (
	articleRe = regexp.MustCompile(`第` + chineseNumerals + `条`)
	chapterRe = regexp.MustCompile(`第` + chineseNumerals + `章`)
	sectionRe = regexp.MustCompile(`第` + chineseNumerals + `节`)
	itemRe    = regexp.MustCompile(`[(（]` + chineseNumerals + `[)）]`)
	listRe    = regexp.MustCompile(`\d+[.、]`)

	// boundaryRe marks where a new article, chapter, section or item begins,
	// swallowing a structure tag in front of it.
	boundaryRe = regexp.MustCompile(`(?:\[[A-Z]+\] )?(?:第` + chineseNumerals + `[条章节]|[(（]` + chineseNumerals + `[)）])`)
)

// leadingTag returns the structure tag (with its trailing space) that line
// starts with, or "".
func leadingTag(line string) string {
	for _, tag := range allTags {
		if strings.HasPrefix(line, tag+" ") {
			return tag + " "
		}
	}
	return ""
}

// tagLine prefixes line with the tag of the first matching structure rule.
// Blank and already tagged lines are returned unchanged.
func tagLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || leadingTag(trimmed) != "" {
		return line
	}
	for _, rule := range structureRules {
		if rule.re.MatchString(trimmed) {
			return rule.tag + " " + trimmed
		}
	}
	return line
}

// markStructure runs tagLine over every line of text.
func markStructure(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = tagLine(line)
	}
	return strings.Join(lines, "\n")
}
