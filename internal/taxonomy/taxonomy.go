// Package taxonomy maps user-facing service categories to the radio
// database's internal tag identifiers and back, and infers categories from
// free text when structured tag data is unavailable.
package taxonomy

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category is a user-facing service category.
type Category string

const (
	CategoryPolice         Category = "Police"
	CategoryFire           Category = "Fire"
	CategoryEMS            Category = "EMS"
	CategoryPublicWorks    Category = "Public Works"
	CategoryUtilities      Category = "Utilities"
	CategorySchools        Category = "Schools"
	CategoryAviation       Category = "Aviation"
	CategoryRail           Category = "Rail"
	CategoryBusiness       Category = "Business"
	CategoryMilitary       Category = "Military"
	CategoryFederal        Category = "Federal"
	CategoryCorrections    Category = "Corrections"
	CategoryEmergencyMgmt  Category = "Emergency Management"
	CategoryTransportation Category = "Transportation"
	CategorySecurity       Category = "Security"
	CategoryMedia          Category = "Media"
	CategoryOther          Category = "Other"
)

// maxFilterCategories is the point past which a request is treated as
// "fetch everything": tag filtering is skipped entirely so data whose tag
// falls outside the static table is never silently hidden.
const maxFilterCategories = 12

// defaultCategoryTags maps each category to the provider tag identifiers it
// covers.
var defaultCategoryTags = map[Category][]int{
	CategoryPolice:         {2, 7, 23},       // Law Dispatch, Law Tac, Law Talk
	CategoryFire:           {3, 8, 24},       // Fire Dispatch, Fire-Tac, Fire-Talk
	CategoryEMS:            {4, 9, 12, 25},   // EMS Dispatch, EMS-Tac, Hospital, EMS-Talk
	CategoryPublicWorks:    {14},             // Public Works
	CategoryUtilities:      {34},             // Utilities
	CategorySchools:        {32},             // Schools
	CategoryAviation:       {15},             // Aircraft
	CategoryRail:           {20},             // Railroad
	CategoryBusiness:       {17},             // Business
	CategoryMilitary:       {30},             // Military
	CategoryFederal:        {16},             // Federal
	CategoryCorrections:    {37},             // Corrections
	CategoryEmergencyMgmt:  {1, 6, 11, 22, 29}, // Multi-Dispatch, Multi-Tac, Interop, Multi-Talk, Emergency Ops
	CategoryTransportation: {26},             // Transportation
	CategorySecurity:       {33},             // Security
	CategoryMedia:          {31},             // Media
}

// defaultTagNames recovers a display tag name from a numeric identifier.
var defaultTagNames = map[int]string{
	1:  "Multi-Dispatch",
	2:  "Law Dispatch",
	3:  "Fire Dispatch",
	4:  "EMS Dispatch",
	6:  "Multi-Tac",
	7:  "Law Tac",
	8:  "Fire-Tac",
	9:  "EMS-Tac",
	11: "Interop",
	12: "Hospital",
	13: "Ham",
	14: "Public Works",
	15: "Aircraft",
	16: "Federal",
	17: "Business",
	20: "Railroad",
	21: "Other",
	22: "Multi-Talk",
	23: "Law Talk",
	24: "Fire-Talk",
	25: "EMS-Talk",
	26: "Transportation",
	29: "Emergency Ops",
	30: "Military",
	31: "Media",
	32: "Schools",
	33: "Security",
	34: "Utilities",
	35: "Data",
	37: "Corrections",
}

// Mapper resolves categories to provider tag sets and back.
type Mapper struct {
	categoryTags map[Category][]int
	tagNames     map[int]string
}

// Default returns a mapper backed by the built-in tables.
func Default() *Mapper {
	return &Mapper{
		categoryTags: defaultCategoryTags,
		tagNames:     defaultTagNames,
	}
}

// overrideFile is the YAML shape of a taxonomy override file: extra or
// replacement category→tag mappings for provider tags outside the built-in
// tables.
type overrideFile struct {
	Categories map[string][]int `yaml:"categories"`
	TagNames   map[int]string   `yaml:"tag_names"`
}

// FromFile returns a mapper with the built-in tables merged with overrides
// loaded from a YAML file.
func FromFile(path string) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read overrides %s", path)
	}

	var of overrideFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse overrides")
	}

	m := &Mapper{
		categoryTags: make(map[Category][]int, len(defaultCategoryTags)+len(of.Categories)),
		tagNames:     make(map[int]string, len(defaultTagNames)+len(of.TagNames)),
	}
	for c, tags := range defaultCategoryTags {
		m.categoryTags[c] = tags
	}
	for c, tags := range of.Categories {
		m.categoryTags[Category(c)] = tags
	}
	for id, name := range defaultTagNames {
		m.tagNames[id] = name
	}
	for id, name := range of.TagNames {
		m.tagNames[id] = name
	}
	return m, nil
}

// TagName returns the display name for a provider tag identifier,
// defaulting to "Other" for unknown identifiers.
func (m *Mapper) TagName(id int) string {
	if name, ok := m.tagNames[id]; ok {
		return name
	}
	return string(CategoryOther)
}

// TagSet returns the union of provider tag identifiers covered by the
// selected categories. A nil return means "fetch everything": either no
// categories were selected or the selection exceeds the filter threshold.
func (m *Mapper) TagSet(categories []Category) map[int]bool {
	if len(categories) == 0 || len(categories) > maxFilterCategories {
		return nil
	}
	set := make(map[int]bool)
	for _, c := range categories {
		for _, id := range m.categoryTags[c] {
			set[id] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Categories lists the categories the mapper knows, for CLI help output.
func (m *Mapper) Categories() []Category {
	out := make([]Category, 0, len(m.categoryTags))
	for c := range m.categoryTags {
		out = append(out, c)
	}
	return out
}

// inferRule is one ordered substring rule; first match wins.
type inferRule struct {
	substrings []string
	category   Category
}

var inferRules = []inferRule{
	{[]string{"police", "sheriff", "law", "pd ", " pd", "trooper", "patrol"}, CategoryPolice},
	{[]string{"fire", "rescue"}, CategoryFire},
	{[]string{"ems", "ambulance", "medic", "hospital", "medical"}, CategoryEMS},
	{[]string{"correction", "jail", "prison"}, CategoryCorrections},
	{[]string{"school"}, CategorySchools},
	{[]string{"public works", "streets", "sanitation", "water dept"}, CategoryPublicWorks},
	{[]string{"utilit", "electric", "gas dept"}, CategoryUtilities},
	{[]string{"airport", "aviation", "aircraft"}, CategoryAviation},
	{[]string{"railroad", "railway", "rail "}, CategoryRail},
	{[]string{"military", "army", "navy", "air force"}, CategoryMilitary},
	{[]string{"federal", "fbi", "dhs", "border"}, CategoryFederal},
	{[]string{"emergency", "ema ", "interop", "mutual aid"}, CategoryEmergencyMgmt},
	{[]string{"transit", "transportation", "bus "}, CategoryTransportation},
	{[]string{"security"}, CategorySecurity},
	{[]string{"media", "broadcast"}, CategoryMedia},
	{[]string{"business"}, CategoryBusiness},
}

// Infer derives a category from concatenated category/subcategory name text.
// Used when structured tag data is unavailable. Rules are ordered and the
// first match wins, so "Fire Police" classifies as Police.
func Infer(text string) Category {
	lower := strings.ToLower(text)
	for _, rule := range inferRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// ParseCategories converts raw CLI/API category strings, dropping empties.
func ParseCategories(raw []string) []Category {
	out := make([]Category, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, Category(s))
	}
	return out
}
