package metadata

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ProvinceRule maps a province code to the URL fragments and text names
// that identify it.
type ProvinceRule struct {
	Code         string   `yaml:"code"`
	Name         string   `yaml:"name"`
	Aliases      []string `yaml:"aliases"`
	URLFragments []string `yaml:"url_fragments"`
	TextNames    []string `yaml:"text_names"`
}

// AssetRule maps an asset code to the URL keywords and text keywords that
// identify it.
type AssetRule struct {
	Code         string   `yaml:"code"`
	Name         string   `yaml:"name"`
	Aliases      []string `yaml:"aliases"`
	URLKeywords  []string `yaml:"url_keywords"`
	TextKeywords []string `yaml:"text_keywords"`
}

// Rules are the classification tables used by the Extractor. Province and
// asset rules are tried in order; first match wins.
type Rules struct {
	Provinces     []ProvinceRule `yaml:"provinces"`
	Assets        []AssetRule    `yaml:"assets"`
	GridKeywords  []string       `yaml:"grid_keywords"`
	ScopeKeywords []string       `yaml:"scope_keywords"`
}

// DefaultRules returns the built-in classification tables.
func DefaultRules() Rules {
	return Rules{
		Provinces: []ProvinceRule{
			{
				Code:         "gd",
				Name:         "广东",
				Aliases:      []string{"guangdong", "广东省"},
				URLFragments: []string{"gd.gov.cn", "guangdong"},
				TextNames:    []string{"广东", "粤"},
			},
			{
				Code:         "sd",
				Name:         "山东",
				Aliases:      []string{"shandong", "山东省"},
				URLFragments: []string{"sd.gov.cn", "shandong"},
				TextNames:    []string{"山东", "鲁"},
			},
			{
				Code:         "nm",
				Name:         "内蒙古",
				Aliases:      []string{"nmg", "neimenggu", "inner mongolia", "内蒙古自治区"},
				URLFragments: []string{"nmg.gov.cn", "nm.gov.cn", "neimenggu"},
				TextNames:    []string{"内蒙古", "内蒙"},
			},
		},
		Assets: []AssetRule{
			{
				Code:         "solar",
				Name:         "光伏",
				Aliases:      []string{"pv", "photovoltaic", "太阳能"},
				URLKeywords:  []string{"solar", "photovoltaic", "pv"},
				TextKeywords: []string{"光伏", "太阳能", "光电", "组件", "逆变器"},
			},
			{
				Code:         "coal",
				Name:         "煤电",
				Aliases:      []string{"thermal", "火电"},
				URLKeywords:  []string{"coal", "thermal"},
				TextKeywords: []string{"煤电", "燃煤", "火电", "煤炭", "锅炉"},
			},
			{
				Code:         "wind",
				Name:         "风电",
				Aliases:      []string{"windfarm", "风力"},
				URLKeywords:  []string{"wind", "windfarm"},
				TextKeywords: []string{"风电", "风力", "风机", "风场", "海上风"},
			},
		},
		GridKeywords: []string{
			"并网", "接网", "电网接入", "接入系统", "并网验收",
			"grid connection", "grid-connected", "interconnection", "grid",
		},
		ScopeKeywords: []string{
			"并网", "验收", "申请", "备案", "核准", "审批",
			"接入", "电价", "补贴", "调度", "安全", "环保",
			"土地", "规划", "运行", "维护", "交易", "结算",
		},
	}
}

// LoadRules reads a YAML rule file. Non-empty sections replace the
// corresponding default table; missing sections keep the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "metadata: read rules %s", path)
	}

	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return rules, eris.Wrapf(err, "metadata: parse rules %s", path)
	}

	if len(override.Provinces) > 0 {
		rules.Provinces = override.Provinces
	}
	if len(override.Assets) > 0 {
		rules.Assets = override.Assets
	}
	if len(override.GridKeywords) > 0 {
		rules.GridKeywords = override.GridKeywords
	}
	if len(override.ScopeKeywords) > 0 {
		rules.ScopeKeywords = override.ScopeKeywords
	}

	for _, p := range rules.Provinces {
		if p.Code == "" {
			return rules, eris.Errorf("metadata: province rule without code in %s", path)
		}
	}
	for _, a := range rules.Assets {
		if a.Code == "" {
			return rules, eris.Errorf("metadata: asset rule without code in %s", path)
		}
	}
	return rules, nil
}

// NormalizeProvince maps a code, name or alias to its province code.
// Unknown values return "".
func (r Rules) NormalizeProvince(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	for _, p := range r.Provinces {
		if matchesAny(v, p.Code, p.Name, p.Aliases) {
			return p.Code
		}
	}
	return ""
}

// NormalizeAsset maps a code, name or alias to its asset code. Unknown
// values return "".
func (r Rules) NormalizeAsset(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	for _, a := range r.Assets {
		if matchesAny(v, a.Code, a.Name, a.Aliases) {
			return a.Code
		}
	}
	return ""
}

func matchesAny(v, code, name string, aliases []string) bool {
	if v == strings.ToLower(code) || v == strings.ToLower(name) {
		return true
	}
	for _, a := range aliases {
		if v == strings.ToLower(a) {
			return true
		}
	}
	return false
}
