package project

// translations.go - shared replacement tables kept outside the project
// description. The file maps entity name -> column -> replacement set in
// the same shapes the inline replacements field accepts.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Translations is the parsed content of a translations file.
type Translations map[string]Replacements

// LoadTranslations reads and parses a translations file.
func LoadTranslations(path string) (Translations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading translations file: %w", err)
	}
	var tr Translations
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parsing translations file: %w", err)
	}
	return tr, nil
}

// ApplyTranslations merges shared replacements into each named entity.
// Inline declarations win: a shared replacement is only adopted for columns
// the entity does not already replace. Unknown entity names are ignored so
// one translations file can serve several projects.
func (p *Project) ApplyTranslations(tr Translations) {
	for name, shared := range tr {
		ent, ok := p.Entities.Get(name)
		if !ok {
			continue
		}
		declared := make(map[string]bool, len(ent.Replacements))
		for _, cr := range ent.Replacements {
			declared[cr.Column] = true
		}
		for _, cr := range shared {
			if !declared[cr.Column] {
				ent.Replacements = append(ent.Replacements, cr)
			}
		}
	}
}
