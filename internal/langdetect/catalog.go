package langdetect

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var catalogYAML []byte

// Language is one supported language.
type Language struct {
	Code    string   `yaml:"code" json:"code"`
	Name    string   `yaml:"name" json:"name"`
	Native  string   `yaml:"native" json:"native"`
	ISO3    string   `yaml:"iso3" json:"-"`
	NLLB    string   `yaml:"nllb" json:"-"`
	Aliases []string `yaml:"aliases" json:"-"`
}

// Catalog is the set of supported languages.
type Catalog struct {
	Default   string     `yaml:"default"`
	Languages []Language `yaml:"languages"`

	byCode  map[string]Language
	byOther map[string]string
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse language catalog: %w", err)
	}
	if len(c.Languages) == 0 {
		return nil, fmt.Errorf("language catalog is empty")
	}

	c.byCode = make(map[string]Language, len(c.Languages))
	c.byOther = make(map[string]string)
	for _, l := range c.Languages {
		code := strings.ToLower(l.Code)
		if len(code) != 2 {
			return nil, fmt.Errorf("language %q: code must have two letters", l.Code)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("language %q listed twice", code)
		}
		l.Code = code
		c.byCode[code] = l
		if l.ISO3 != "" {
			c.byOther[strings.ToLower(l.ISO3)] = code
		}
		for _, a := range l.Aliases {
			c.byOther[strings.ToLower(a)] = code
		}
	}
	if _, ok := c.byCode[c.Default]; !ok {
		return nil, fmt.Errorf("default language %q is not in the catalog", c.Default)
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize maps "EN", "en-US", "pt_BR", "eng" or an alias to a supported
// two-letter code.
func (c *Catalog) Normalize(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if _, ok := c.byCode[code]; ok {
		return code, true
	}
	if mapped, ok := c.byOther[code]; ok {
		return mapped, true
	}
	return "", false
}

func (c *Catalog) IsSupported(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

func (c *Catalog) Lookup(code string) (Language, bool) {
	l, ok := c.byCode[code]
	return l, ok
}

// Name returns the English name for code, or the code itself when unknown.
func (c *Catalog) Name(code string) string {
	if l, ok := c.byCode[code]; ok {
		return l.Name
	}
	return code
}

// Codes lists supported codes in alphabetical order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
