package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

const defaultLanguage = "en"

func main() {
	dir := "data"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Usage: %s [content-dir]\n", os.Args[0])
		os.Exit(1)
	}

	fmt.Printf("Validating %s...\n", dir)
	v := &ContentValidator{fsys: os.DirFS(dir), defaultLanguage: defaultLanguage}
	if err := v.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Content is valid!")
}

// ContentValidator checks a content tree strictly: unknown fields, id
// format and cross references between bartenders and scripts
type ContentValidator struct {
	fsys            fs.FS
	defaultLanguage string
	errors          []string
}

// Validate returns all problems found, joined into one error
func (v *ContentValidator) Validate() error {
	v.errors = nil

	scripts := v.validateScripts()
	v.validateBartenders(scripts)
	v.validatePatrons()

	if len(v.errors) > 0 {
		return errors.New(strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateScripts checks every script file and returns the parsed scripts of
// the default language by key
func (v *ContentValidator) validateScripts() map[string]*dialogue.Script {
	defaults := make(map[string]*dialogue.Script)

	langs, err := fs.ReadDir(v.fsys, "scripts")
	if err != nil {
		v.addError(fmt.Sprintf("scripts directory: %v", err))
		return defaults
	}

	for _, lang := range langs {
		if !lang.IsDir() {
			continue
		}
		dir := path.Join("scripts", lang.Name())
		files, err := fs.ReadDir(v.fsys, dir)
		if err != nil {
			v.addError(fmt.Sprintf("%s: %v", dir, err))
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			p := path.Join(dir, f.Name())
			ext := path.Ext(f.Name())
			key := strings.TrimSuffix(f.Name(), ext)
			if ext != ".json" && ext != ".yaml" && ext != ".yml" {
				v.addError(fmt.Sprintf("%s: scripts must be .json, .yaml or .yml", p))
				continue
			}
			if !isValidID(key) {
				v.addError(fmt.Sprintf("%s: script key '%s' should be lowercase snake_case", p, key))
			}

			s, err := v.decodeScript(p, ext)
			if err != nil {
				v.addError(fmt.Sprintf("%s: %v", p, err))
				continue
			}
			s.Key = key
			if err := s.Validate(); err != nil {
				v.addError(fmt.Sprintf("%s: %v", p, err))
				continue
			}
			for i, d := range s.Descriptions {
				if strings.TrimSpace(d) == "" {
					v.addError(fmt.Sprintf("%s: descriptions[%d] is empty", p, i))
				}
			}
			if lang.Name() == v.defaultLanguage {
				defaults[key] = s
			}
		}
	}
	return defaults
}

func (v *ContentValidator) decodeScript(p, ext string) (*dialogue.Script, error) {
	data, err := fs.ReadFile(v.fsys, p)
	if err != nil {
		return nil, err
	}

	var s dialogue.Script
	if ext == ".json" {
		if err := decodeStrictJSON(data, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed strict YAML unmarshaling: %w", err)
	}
	return &s, nil
}

func (v *ContentValidator) validateBartenders(scripts map[string]*dialogue.Script) {
	files, err := fs.ReadDir(v.fsys, "bartenders")
	if err != nil {
		v.addError(fmt.Sprintf("bartenders directory: %v", err))
		return
	}

	for _, f := range files {
		if f.IsDir() || path.Ext(f.Name()) != ".json" {
			continue
		}
		p := path.Join("bartenders", f.Name())
		id := strings.TrimSuffix(f.Name(), ".json")
		if !isValidID(id) {
			v.addError(fmt.Sprintf("%s: bartender filename '%s' should be lowercase snake_case", p, f.Name()))
		}

		data, err := fs.ReadFile(v.fsys, p)
		if err != nil {
			v.addError(fmt.Sprintf("%s: %v", p, err))
			continue
		}
		var b actor.BartenderSpec
		if err := decodeStrictJSON(data, &b); err != nil {
			v.addError(fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if b.ID != "" && b.ID != id {
			v.addError(fmt.Sprintf("%s: id '%s' does not match filename", p, b.ID))
		}
		b.ID = id
		if err := b.Validate(); err != nil {
			v.addError(fmt.Sprintf("%s: %v", p, err))
		}
		for _, fo := range b.FlavorOptions {
			if fo.Key != "" && !isValidID(fo.Key) {
				v.addError(fmt.Sprintf("%s: flavor option key '%s' should be lowercase snake_case", p, fo.Key))
			}
		}

		s, ok := scripts[b.ScriptKey()]
		if !ok {
			v.addError(fmt.Sprintf("%s: script '%s' not found in scripts/%s", p, b.ScriptKey(), v.defaultLanguage))
			continue
		}
		if len(s.BlockingTexts) > 0 && b.BlockingDialogueIndex >= len(s.BlockingTexts) {
			v.addError(fmt.Sprintf("%s: blocking_dialogue_index %d out of range, script has %d blocking texts",
				p, b.BlockingDialogueIndex, len(s.BlockingTexts)))
		}
	}
}

func (v *ContentValidator) validatePatrons() {
	files, err := fs.ReadDir(v.fsys, "patrons")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			v.addError(fmt.Sprintf("patrons directory: %v", err))
		}
		return
	}

	for _, f := range files {
		if f.IsDir() || path.Ext(f.Name()) != ".json" {
			continue
		}
		p := path.Join("patrons", f.Name())
		id := strings.TrimSuffix(f.Name(), ".json")
		if !isValidID(id) {
			v.addError(fmt.Sprintf("%s: patron filename '%s' should be lowercase snake_case", p, f.Name()))
		}

		data, err := fs.ReadFile(v.fsys, p)
		if err != nil {
			v.addError(fmt.Sprintf("%s: %v", p, err))
			continue
		}
		var spec actor.PatronSpec
		if err := decodeStrictJSON(data, &spec); err != nil {
			v.addError(fmt.Sprintf("%s: %v", p, err))
			continue
		}
		spec.ID = id
		if _, err := actor.NewPatronFromSpec(&spec); err != nil {
			v.addError(fmt.Sprintf("%s: %v", p, err))
		}
	}
}

func decodeStrictJSON(data []byte, v any) error {
	if !json.Valid(data) {
		return errors.New("invalid JSON")
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("failed strict JSON unmarshaling: %w", err)
	}
	return nil
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func isValidID(id string) bool {
	return actor.ValidID(id)
}
