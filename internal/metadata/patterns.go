package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

const han = `[\x{4e00}-\x{9fff}]`

// Title inference looks at the leading lines for one shaped like a
// government document heading.
const (
	titleScanLines = 10
	minTitleChars  = 6
	maxTitleChars  = 100
)

var titleSuffixRe = regexp.MustCompile(`(?:通知|办法|规定|意见|方案|细则|公告|决定|条例|规则|指南|批复|函)$`)

// authorityPatterns are tried in order; first match wins.
var authorityPatterns = []*regexp.Regexp{
	regexp.MustCompile(han + `{2,8}发展和改革委员会`),
	regexp.MustCompile(han + `{2,8}发展改革委`),
	regexp.MustCompile(han + `{2,8}能源局`),
	regexp.MustCompile(han + `{2,10}电力(?:有限)?公司`),
	regexp.MustCompile(han + `{2,8}人民政府`),
	regexp.MustCompile(han + `{2,8}(?:工业和信息化厅|住房和城乡建设厅|工业和信息化局|住房和城乡建设局)`),
}

// docNumberPatterns are tried in order; first match wins. The year-qualified
// announcement form precedes the bare 第N号 form it contains.
var docNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(han + `{1,8}[〔﹝]\d{4}[〕﹞]\d+号`),
	regexp.MustCompile(han + `{1,8}\[\d{4}\]\d+号`),
	regexp.MustCompile(`\d{4}年第\d+号`),
	regexp.MustCompile(`第\d+号`),
}

const dateCapture = `(\d{4})\s*[年\-/.]\s*(\d{1,2})\s*[月\-/.]\s*(\d{1,2})\s*日?`

// publicationDatePatterns each capture year, month and day.
var publicationDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`印发日期[：:]\s*` + dateCapture),
	regexp.MustCompile(`发布日期[：:]\s*` + dateCapture),
	regexp.MustCompile(`颁布日期[：:]\s*` + dateCapture),
	regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日\s*印发`),
	regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日\s*发布`),
}

var effectiveDateRe = regexp.MustCompile(`自\s*(\d{4})年(\d{1,2})月(\d{1,2})日起(?:施行|执行|实施)`)

var numericRe = regexp.MustCompile(`^[\d\s]+$`)

func inferTitle(text string) string {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > titleScanLines {
			break
		}
		n := textproc.RuneLen(line)
		if n < minTitleChars || n > maxTitleChars {
			continue
		}
		if titleSuffixRe.MatchString(line) {
			return line
		}
	}
	return ""
}

func extractAuthority(text string) string {
	head := textproc.Truncate(text, authorityWindow)
	for _, re := range authorityPatterns {
		m := re.FindString(head)
		if m == "" {
			continue
		}
		if n := textproc.RuneLen(m); n >= 5 && n <= 50 {
			return m
		}
	}
	return ""
}

func extractDocumentNumber(text string) string {
	head := textproc.Truncate(text, docNumberWindow)
	for _, re := range docNumberPatterns {
		m := re.FindString(head)
		if m == "" {
			continue
		}
		if textproc.RuneLen(m) <= 30 {
			return m
		}
	}
	return ""
}

func extractPublicationDate(text string) string {
	head := textproc.Truncate(text, dateWindow)
	for _, re := range publicationDatePatterns {
		for _, m := range re.FindAllStringSubmatch(head, -1) {
			if d, ok := formatDate(m[1], m[2], m[3]); ok {
				return d
			}
		}
	}
	return ""
}

func extractEffectiveDate(text string) string {
	for _, m := range effectiveDateRe.FindAllStringSubmatch(text, -1) {
		if d, ok := formatDate(m[1], m[2], m[3]); ok {
			return d
		}
	}
	return ""
}

// formatDate validates the captured parts and renders YYYY-MM-DD.
func formatDate(y, m, d string) (string, bool) {
	year, err := strconv.Atoi(y)
	if err != nil || year < 2000 || year > 2030 {
		return "", false
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return "", false
	}
	day, err := strconv.Atoi(d)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
