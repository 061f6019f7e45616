package textproc

import (
	"regexp"
	"sort"
	"strings"
)

// technicalTerms is the fixed energy-regulation vocabulary matched as
// plain substrings.
var technicalTerms = []string{
	"并网", "光伏发电", "分布式光伏", "风力发电", "风电场",
	"火力发电", "煤电", "电网", "接入系统", "备案",
	"核准", "验收", "上网电价", "电价", "补贴",
	"可再生能源", "新能源", "储能", "配电网", "输电线路",
	"变电站", "装机容量", "电力市场", "发电企业", "电力调度",
}

// Numeric term patterns: electrical quantities, percentages, Chinese-style
// dates and large Chinese magnitudes.
var (
	electricalUnitRe = regexp.MustCompile(`\d+(?:\.\d+)?[kKmM]?[VvWwAa]`)
	percentageRe     = regexp.MustCompile(`\d+(?:\.\d+)?%`)
	chineseDateRe    = regexp.MustCompile(`\d+(?:\.\d+)?[年月日]`)
	magnitudeRe      = regexp.MustCompile(`\d+(?:\.\d+)?[米千万亿]`)
)

var termPatterns = []*regexp.Regexp{
	articleRe, chapterRe, sectionRe, itemRe, listRe,
	electricalUnitRe, percentageRe, chineseDateRe, magnitudeRe,
}

// ExtractKeyTerms collects the technical vocabulary terms present in text
// plus every structure-marker and numeric-quantity match. The result is
// deduplicated and sorted.
func ExtractKeyTerms(text string) []string {
	seen := make(map[string]struct{})
	for _, term := range technicalTerms {
		if strings.Contains(text, term) {
			seen[term] = struct{}{}
		}
	}
	for _, re := range termPatterns {
		for _, m := range re.FindAllString(text, -1) {
			seen[m] = struct{}{}
		}
	}

	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}
