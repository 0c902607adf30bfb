// Package i18n serves the localized UI strings.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Fallback is the language used for missing keys and unmatched requests.
const Fallback = "en"

// Catalog holds the translation tables, flattened to dotted keys.
type Catalog struct {
	langs   []string
	tables  map[string]map[string]string
	matcher language.Matcher
}

// Load reads the embedded locale files.
func Load() (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	c := &Catalog{tables: make(map[string]map[string]string)}
	for _, entry := range entries {
		name := entry.Name()
		if path.Ext(name) != ".yaml" {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}

		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}

		table := make(map[string]string)
		flatten("", raw, table)
		c.tables[strings.TrimSuffix(name, ".yaml")] = table
	}

	if _, ok := c.tables[Fallback]; !ok {
		return nil, fmt.Errorf("missing %s locale", Fallback)
	}

	// The fallback goes first: the matcher returns it when nothing matches.
	c.langs = append(c.langs, Fallback)
	var others []string
	for lang := range c.tables {
		if lang != Fallback {
			others = append(others, lang)
		}
	}
	sort.Strings(others)
	c.langs = append(c.langs, others...)

	tags := make([]language.Tag, len(c.langs))
	for i, lang := range c.langs {
		tags[i] = language.Make(lang)
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// MustLoad is Load for package initialization of commands.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Languages returns the supported language codes, fallback first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.langs...)
}

// Supported reports whether lang has a table.
func (c *Catalog) Supported(lang string) bool {
	_, ok := c.tables[lang]
	return ok
}

// Match picks the best supported language for a language code or an
// Accept-Language header value.
func (c *Catalog) Match(accept ...string) string {
	_, idx := language.MatchStrings(c.matcher, accept...)
	if idx < 0 || idx >= len(c.langs) {
		return Fallback
	}
	return c.langs[idx]
}

// T returns the string for key in lang, falling back to English, then to
// the key itself.
func (c *Catalog) T(lang, key string) string {
	if s, ok := c.tables[lang][key]; ok {
		return s
	}
	if s, ok := c.tables[Fallback][key]; ok {
		return s
	}
	return key
}
