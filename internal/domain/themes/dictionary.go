// Package themes clusters free-text feedback onto a fixed keyword dictionary.
package themes

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDictionary is returned for malformed theme tables.
var ErrInvalidDictionary = errors.New("invalid theme dictionary")

//go:embed default.yaml
var defaultYAML []byte

// Definition describes one theme.
type Definition struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	NameNL      string   `yaml:"nameNl" json:"nameNl"`
	Description string   `yaml:"description" json:"description"`
	Color       string   `yaml:"color" json:"color"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
	Synonyms    []string `yaml:"synonyms" json:"synonyms"`
}

// Dictionary is an ordered, immutable set of theme definitions.
// Customization means building a new Dictionary, never mutating one.
type Dictionary struct {
	defs []Definition
	// normalized keyword and synonym lists, parallel to defs
	keywords [][]string
	synonyms [][]string
}

type dictionaryFile struct {
	Themes []Definition `yaml:"themes"`
}

// NewDictionary validates defs and returns a Dictionary that owns a copy of them.
func NewDictionary(defs []Definition) (*Dictionary, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no themes", ErrInvalidDictionary)
	}
	d := &Dictionary{
		defs:     make([]Definition, len(defs)),
		keywords: make([][]string, len(defs)),
		synonyms: make([][]string, len(defs)),
	}
	seen := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("%w: theme %d has no id", ErrInvalidDictionary, i)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate theme id %q", ErrInvalidDictionary, def.ID)
		}
		seen[def.ID] = struct{}{}

		d.keywords[i] = normalizeTerms(def.Keywords)
		d.synonyms[i] = normalizeTerms(def.Synonyms)
		if len(d.keywords[i])+len(d.synonyms[i]) == 0 {
			return nil, fmt.Errorf("%w: theme %q has no keywords", ErrInvalidDictionary, def.ID)
		}

		def.Keywords = slices.Clone(def.Keywords)
		def.Synonyms = slices.Clone(def.Synonyms)
		d.defs[i] = def
	}
	return d, nil
}

// Parse reads a YAML dictionary of the form `themes: [{id, name, ...}]`.
func Parse(data []byte) (*Dictionary, error) {
	var f dictionaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDictionary, err)
	}
	return NewDictionary(f.Themes)
}

// LoadFile reads a YAML dictionary from path.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read themes file: %w", err)
	}
	return Parse(data)
}

var loadDefault = sync.OnceValue(func() *Dictionary { //nolint:gochecknoglobals // loaded-once table
	d, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in theme dictionary: %v", err))
	}
	return d
})

// Default returns the built-in Dutch dictionary.
func Default() *Dictionary { return loadDefault() }

// Definitions returns a copy of the themes in dictionary order.
func (d *Dictionary) Definitions() []Definition {
	out := make([]Definition, len(d.defs))
	for i, def := range d.defs {
		def.Keywords = slices.Clone(def.Keywords)
		def.Synonyms = slices.Clone(def.Synonyms)
		out[i] = def
	}
	return out
}

// Lookup returns the theme with id.
func (d *Dictionary) Lookup(id string) (Definition, bool) {
	for _, def := range d.defs {
		if def.ID == id {
			def.Keywords = slices.Clone(def.Keywords)
			def.Synonyms = slices.Clone(def.Synonyms)
			return def, true
		}
	}
	return Definition{}, false
}

// Len returns the number of themes.
func (d *Dictionary) Len() int { return len(d.defs) }

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := normalize(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
