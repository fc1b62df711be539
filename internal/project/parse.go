package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads, preprocesses and parses a project description file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse builds a Project from raw YAML. baseDir anchors relative include
// paths. Structural problems beyond YAML shape (unknown entity references,
// cycles, missing kind fields) are the validation framework's concern, not
// parse errors.
func Parse(data []byte, baseDir string) (*Project, error) {
	root, err := Preprocess(data, baseDir)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := root.Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}
	if p.Entities.Len() == 0 {
		return nil, fmt.Errorf("project declares no entities")
	}
	if p.Options.TranslationsFile != "" {
		tr, err := LoadTranslations(resolvePath(baseDir, p.Options.TranslationsFile))
		if err != nil {
			return nil, err
		}
		p.ApplyTranslations(tr)
	}
	return &p, nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
