package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

// DefaultLanguage is used when no translation matches the requested language
const DefaultLanguage = "en"

const (
	bartendersDir = "bartenders"
	patronsDir    = "patrons"
	scriptsDir    = "scripts"
)

var scriptExtensions = []string{".json", ".yaml", ".yml"}

// Content loads static resources (bartenders, patrons, scripts) from a
// filesystem laid out as:
//
//	bartenders/<id>.json
//	patrons/<id>.json
//	scripts/<lang>/<key>.json|yaml
type Content struct {
	fsys        fs.FS
	defaultLang string
	logger      *slog.Logger
}

// NewContent creates a content loader over fsys
func NewContent(fsys fs.FS, defaultLanguage string, logger *slog.Logger) *Content {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	return &Content{
		fsys:        fsys,
		defaultLang: defaultLanguage,
		logger:      logger,
	}
}

func (c *Content) GetBartender(ctx context.Context, bartenderID string) (*actor.BartenderSpec, error) {
	if !actor.ValidID(bartenderID) {
		return nil, fmt.Errorf("bartender %q: %w", bartenderID, storage.ErrNotFound)
	}
	var b actor.BartenderSpec
	if err := c.readJSON(path.Join(bartendersDir, bartenderID+".json"), &b); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("bartender %q: %w", bartenderID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load bartender %q: %w", bartenderID, err)
	}

	// Filename overrides any ID in the JSON
	b.ID = bartenderID
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Content) ListBartenders(ctx context.Context) ([]string, error) {
	return c.listIDs(bartendersDir)
}

// GetPatronSpec loads a patron spec. It does NOT build the d20.Actor
func (c *Content) GetPatronSpec(ctx context.Context, patronID string) (*actor.PatronSpec, error) {
	if !actor.ValidID(patronID) {
		return nil, fmt.Errorf("patron %q: %w", patronID, storage.ErrNotFound)
	}
	var spec actor.PatronSpec
	if err := c.readJSON(path.Join(patronsDir, patronID+".json"), &spec); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("patron %q: %w", patronID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load patron %q: %w", patronID, err)
	}
	spec.ID = patronID
	return &spec, nil
}

func (c *Content) ListPatrons(ctx context.Context) ([]string, error) {
	return c.listIDs(patronsDir)
}

// Languages returns the script translations present, default language first
func (c *Content) Languages() []string {
	entries, err := fs.ReadDir(c.fsys, scriptsDir)
	if err != nil {
		return []string{c.defaultLang}
	}

	langs := []string{c.defaultLang}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == c.defaultLang {
			continue
		}
		if _, err := language.Parse(entry.Name()); err != nil {
			c.logger.Warn("Ignoring script directory with invalid language tag", "dir", entry.Name(), "error", err)
			continue
		}
		langs = append(langs, entry.Name())
	}
	sort.Strings(langs[1:])
	return langs
}

// MatchLanguage picks the best available translation for the requested language
func (c *Content) MatchLanguage(requested string) string {
	langs := c.Languages()
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, language.Make(l))
	}
	_, idx := language.MatchStrings(language.NewMatcher(tags), requested)
	if idx < 0 || idx >= len(langs) {
		return c.defaultLang
	}
	return langs[idx]
}

// GetScript loads a script by key. A missing script is a configuration error
// and reported as storage.ErrScriptNotFound
func (c *Content) GetScript(ctx context.Context, key, lang string) (*dialogue.Script, error) {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, fmt.Errorf("%w: invalid key %q", storage.ErrScriptNotFound, key)
	}

	matched := c.MatchLanguage(lang)
	candidates := []string{matched}
	if matched != c.defaultLang {
		candidates = append(candidates, c.defaultLang)
	}

	for _, l := range candidates {
		s, err := c.readScript(path.Join(scriptsDir, l), key)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if l != matched {
			c.logger.Debug("Script translation missing, using default language", "key", key, "language", matched)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s (language %s)", storage.ErrScriptNotFound, key, matched)
}

func (c *Content) readScript(dir, key string) (*dialogue.Script, error) {
	for _, ext := range scriptExtensions {
		p := path.Join(dir, key+ext)
		data, err := fs.ReadFile(c.fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", p, err)
		}

		var s dialogue.Script
		if ext == ".json" {
			err = json.Unmarshal(data, &s)
		} else {
			err = yaml.NewDecoder(bytes.NewReader(data)).Decode(&s)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse script %s: %w", p, err)
		}
		s.Key = key
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("script %s: %w", p, err)
		}
		return &s, nil
	}
	return nil, fs.ErrNotExist
}

func (c *Content) readJSON(name string, v any) error {
	data, err := fs.ReadFile(c.fsys, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

func (c *Content) listIDs(dir string) ([]string, error) {
	entries, err := fs.ReadDir(c.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s directory: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return ids, nil
}
