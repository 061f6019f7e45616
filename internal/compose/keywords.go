package compose

import (
	"regexp"
	"strings"
)

// MaxKeywords caps the keywords derived from a question.
const MaxKeywords = 8

// vocabulary is matched against the question first, in this order.
var vocabulary = []string{
	"并网", "备案", "核准", "验收", "申请", "接入",
	"光伏", "分布式", "风电", "煤电", "电价", "补贴",
	"电网", "储能", "项目", "审批", "材料", "流程",
	"条件", "标准", "容量", "发电", "用户", "规定",
}

var cjkRunRe = regexp.MustCompile(`[\x{4e00}-\x{9fff}]{2,}`)

// ExtractKeywords derives the span-picking keywords for a question: the
// vocabulary terms it contains, then its remaining CJK runs of two or more
// characters in order of appearance, capped at MaxKeywords.
func ExtractKeywords(question string) []string {
	keywords := make([]string, 0, MaxKeywords)
	seen := make(map[string]bool)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keywords = append(keywords, k)
		}
	}

	for _, term := range vocabulary {
		if strings.Contains(question, term) {
			add(term)
		}
	}
	for _, run := range cjkRunRe.FindAllString(question, -1) {
		add(run)
	}

	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}
