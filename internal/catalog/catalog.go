package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"supplement-safety/backend/internal/match"
)

// UnknownNutrient is the key and value reported when a supplement has no composition entry.
const UnknownNutrient = "정보 없음"

//go:embed catalog.yaml
var defaultYAML []byte

// Label identifies one supplement class of the classifier.
type Label struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Catalog holds the read-only supplement tables: labels, disease risk lists and
// nutrient compositions.
type Catalog struct {
	labels    []Label
	byName    map[string]int
	aliases   map[string]int
	compact   map[string]int
	words     []string
	risks     map[string]map[string]struct{}
	riskLists map[string][]string
	nutrients map[string]map[string]string
}

type fileSchema struct {
	Labels []struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"labels"`
	Risks     map[string][]string          `yaml:"risks"`
	Nutrients map[string]map[string]string `yaml:"nutrients"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the built-in catalog. It panics if the embedded tables are invalid,
// which can only happen through a broken build.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded tables: %v", err))
		}
		defaultCat = cat
	})
	return defaultCat
}

// Load reads a catalog override file using the same YAML schema as the built-in tables.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var raw fileSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if len(raw.Labels) == 0 {
		return nil, errors.New("catalog has no labels")
	}

	cat := &Catalog{
		labels:    make([]Label, 0, len(raw.Labels)),
		byName:    make(map[string]int, len(raw.Labels)),
		aliases:   make(map[string]int),
		compact:   make(map[string]int),
		risks:     make(map[string]map[string]struct{}, len(raw.Risks)),
		riskLists: make(map[string][]string, len(raw.Risks)),
		nutrients: make(map[string]map[string]string, len(raw.Nutrients)),
	}

	for idx, entry := range raw.Labels {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("label %d has no name", idx)
		}
		if _, dup := cat.byName[name]; dup {
			return nil, fmt.Errorf("duplicate label %q", name)
		}
		cat.labels = append(cat.labels, Label{Index: idx, Name: name})
		cat.byName[name] = idx
		cat.addAlias(name, idx)
		for _, alias := range entry.Aliases {
			cat.addAlias(alias, idx)
		}
	}

	for disease, labels := range raw.Risks {
		disease = strings.TrimSpace(disease)
		set := make(map[string]struct{}, len(labels))
		list := make([]string, 0, len(labels))
		for _, name := range labels {
			name = strings.TrimSpace(name)
			if _, ok := cat.byName[name]; !ok {
				return nil, fmt.Errorf("risk list %q references unknown label %q", disease, name)
			}
			set[name] = struct{}{}
			list = append(list, name)
		}
		cat.risks[disease] = set
		cat.riskLists[disease] = list
	}

	for name, composition := range raw.Nutrients {
		name = strings.TrimSpace(name)
		if _, ok := cat.byName[name]; !ok {
			return nil, fmt.Errorf("nutrients reference unknown label %q", name)
		}
		cat.nutrients[name] = composition
	}

	return cat, nil
}

func (c *Catalog) addAlias(alias string, idx int) {
	key := match.NormalizeText(alias)
	if key == "" {
		return
	}
	if _, taken := c.aliases[key]; !taken {
		c.aliases[key] = idx
		if !strings.Contains(key, " ") {
			c.words = append(c.words, key)
		}
	}
	compact := match.Compact(key)
	if _, taken := c.compact[compact]; !taken {
		c.compact[compact] = idx
	}
}

// Len returns the number of labels, which is also the classifier output width.
func (c *Catalog) Len() int {
	return len(c.labels)
}

// Labels returns the labels in index order.
func (c *Catalog) Labels() []Label {
	out := make([]Label, len(c.labels))
	copy(out, c.labels)
	return out
}

// Label resolves a classifier index.
func (c *Catalog) Label(index int) (Label, bool) {
	if index < 0 || index >= len(c.labels) {
		return Label{}, false
	}
	return c.labels[index], true
}

// Index resolves a label name.
func (c *Catalog) Index(name string) (int, bool) {
	idx, ok := c.byName[strings.TrimSpace(name)]
	return idx, ok
}

// Diseases lists the diseases that have a risk entry, sorted.
func (c *Catalog) Diseases() []string {
	out := make([]string, 0, len(c.riskLists))
	for disease := range c.riskLists {
		out = append(out, disease)
	}
	sort.Strings(out)
	return out
}

// RiskyFor returns the labels considered risky for the disease.
func (c *Catalog) RiskyFor(disease string) []string {
	list := c.riskLists[disease]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// IsRisky reports whether the label appears in the disease's risk list.
func (c *Catalog) IsRisky(disease, label string) bool {
	set, ok := c.risks[disease]
	if !ok {
		return false
	}
	_, risky := set[label]
	return risky
}

// Nutrients returns a copy of the label's composition, or the unknown sentinel entry.
func (c *Catalog) Nutrients(label string) map[string]string {
	composition, ok := c.nutrients[label]
	if !ok {
		return map[string]string{UnknownNutrient: UnknownNutrient}
	}
	out := make(map[string]string, len(composition))
	for k, v := range composition {
		out[k] = v
	}
	return out
}

// MatchAlias finds the label named on a package. Aliases must cover whole words, and the
// one that starts earliest in text wins so a product name beats the secondary ingredients
// listed after it ("MAGNESIUM 350mg with Vitamin B6"). Matches starting at the same word go
// to the longer alias, then to the lower index. When nothing matches the spaced form, a
// second pass compares with spaces removed so "OMEGA3" still finds "omega 3", and a last
// pass tolerates OCR misreads of single-word aliases ("MAGNESUM").
func (c *Catalog) MatchAlias(text string) (Label, bool) {
	profile := match.NormalizeLabel(text)
	if profile.Text == "" {
		return Label{}, false
	}
	if idx := firstAlias(c.aliases, profile.Text, strings.Fields(profile.Text), " "); idx >= 0 {
		return c.labels[idx], true
	}
	if idx := firstAlias(c.compact, profile.Compact, profile.Tokens, ""); idx >= 0 {
		return c.labels[idx], true
	}
	if word, _, ok := match.BestFuzzy(profile.Tokens, c.words, fuzzyMinRunes, fuzzyThreshold); ok {
		return c.labels[c.aliases[word]], true
	}
	return Label{}, false
}

const (
	fuzzyMinRunes  = 5
	fuzzyThreshold = 0.8
)

// firstAlias returns the index of the alias occurring earliest in haystack, which is tokens
// joined by sep. Occurrences must start at a token start and end at a token end; aliases
// ending in Hangul may run into a trailing suffix ("홍삼정").
func firstAlias(aliases map[string]int, haystack string, tokens []string, sep string) int {
	if haystack == "" {
		return -1
	}
	starts := make(map[int]bool, len(tokens))
	ends := make(map[int]bool, len(tokens))
	offset := 0
	for _, token := range tokens {
		starts[offset] = true
		offset += len(token)
		ends[offset] = true
		offset += len(sep)
	}

	best, bestPos, bestLen := -1, 0, 0
	for alias, idx := range aliases {
		pos := firstBounded(haystack, alias, starts, ends)
		if pos < 0 {
			continue
		}
		switch {
		case best < 0,
			pos < bestPos,
			pos == bestPos && len(alias) > bestLen,
			pos == bestPos && len(alias) == bestLen && idx < best:
			best, bestPos, bestLen = idx, pos, len(alias)
		}
	}
	return best
}

func firstBounded(haystack, alias string, starts, ends map[int]bool) int {
	open := endsInHangul(alias)
	from := 0
	for from <= len(haystack)-len(alias) {
		i := strings.Index(haystack[from:], alias)
		if i < 0 {
			return -1
		}
		pos := from + i
		if starts[pos] && (ends[pos+len(alias)] || open) {
			return pos
		}
		from = pos + 1
	}
	return -1
}

func endsInHangul(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.Is(unicode.Hangul, r)
}
