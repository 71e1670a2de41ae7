package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/tavern-engine/data"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"bartenders/starbucks_bartender.json": {Data: []byte(`{
			"id": "ignored",
			"name": "Starbuck",
			"heal_description": "Heal 12 HP.",
			"heal_amount": 12,
			"second_option": {"description": "Raise Max HP", "effect": {"kind": "max_hp", "amount": 4}}
		}`)},
		"bartenders/broken.json":                        {Data: []byte(`{"name": "No heal"}`)},
		"bartenders/notes.txt":                          {Data: []byte("not a bartender")},
		"patrons/wanderer.json":                         {Data: []byte(`{"name": "The Wanderer", "hp": 40, "max_hp": 72}`)},
		"scripts/en/starbucks_bartender_cutscene.json":  {Data: []byte(`{"descriptions": ["hi", "mid", "bye"], "options": ["No thanks."]}`)},
		"scripts/fr/starbucks_bartender_cutscene.json":  {Data: []byte(`{"descriptions": ["salut", "milieu", "au revoir"], "options": ["Non merci."]}`)},
		"scripts/en/dusty_barkeep_cutscene.yaml":        {Data: []byte("descriptions:\n  - sit\n  - drink\n  - go\noptions:\n  - fine\n")},
		"scripts/en/too_short_cutscene.json":            {Data: []byte(`{"descriptions": ["bye"], "options": ["No"]}`)},
		"scripts/de/dusty_barkeep_cutscene.yml":         {Data: []byte("descriptions: [setz dich, trink, geh]\noptions: [nein]\n")},
		"scripts/not-a-language!/whatever_cutscene.json": {Data: []byte(`{}`)},
	}
}

func TestContent_GetBartender(t *testing.T) {
	c := NewContent(testFS(), "", testLogger())
	ctx := context.Background()

	b, err := c.GetBartender(ctx, "starbucks_bartender")
	require.NoError(t, err)
	assert.Equal(t, "starbucks_bartender", b.ID, "filename overrides the id in the file")
	assert.Equal(t, "Raise Max HP", b.SecondOptionDescription())

	_, err = c.GetBartender(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = c.GetBartender(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	// Aliases of an existing file are not the same bartender
	for _, alias := range []string{"./starbucks_bartender", "x/../starbucks_bartender", "Starbucks_Bartender", ""} {
		_, err = c.GetBartender(ctx, alias)
		assert.ErrorIs(t, err, storage.ErrNotFound, alias)
	}
}

func TestContent_ListBartenders(t *testing.T) {
	c := NewContent(testFS(), "", testLogger())
	ids, err := c.ListBartenders(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"starbucks_bartender", "broken"}, ids)

	empty := NewContent(fstest.MapFS{}, "", testLogger())
	ids, err = empty.ListBartenders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestContent_GetPatronSpec(t *testing.T) {
	c := NewContent(testFS(), "", testLogger())
	spec, err := c.GetPatronSpec(context.Background(), "wanderer")
	require.NoError(t, err)
	assert.Equal(t, "wanderer", spec.ID)
	assert.Equal(t, 72, spec.MaxHP)

	_, err = c.GetPatronSpec(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = c.GetPatronSpec(context.Background(), "./wanderer")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestContent_Languages(t *testing.T) {
	c := NewContent(testFS(), "en", testLogger())
	assert.Equal(t, []string{"en", "de", "fr"}, c.Languages())

	tests := []struct {
		requested string
		want      string
	}{
		{"", "en"},
		{"en-US", "en"},
		{"fr", "fr"},
		{"fr-CA", "fr"},
		{"de-AT,de;q=0.9", "de"},
		{"ja", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			assert.Equal(t, tt.want, c.MatchLanguage(tt.requested))
		})
	}
}

func TestContent_GetScript(t *testing.T) {
	c := NewContent(testFS(), "en", testLogger())
	ctx := context.Background()

	t.Run("json in default language", func(t *testing.T) {
		s, err := c.GetScript(ctx, "starbucks_bartender_cutscene", "")
		require.NoError(t, err)
		assert.Equal(t, "starbucks_bartender_cutscene", s.Key)
		assert.Equal(t, "hi", s.Descriptions[0])
	})

	t.Run("translated", func(t *testing.T) {
		s, err := c.GetScript(ctx, "starbucks_bartender_cutscene", "fr-FR")
		require.NoError(t, err)
		assert.Equal(t, "salut", s.Descriptions[0])
		assert.Equal(t, "Non merci.", s.DeclineLabel())
	})

	t.Run("yaml", func(t *testing.T) {
		s, err := c.GetScript(ctx, "dusty_barkeep_cutscene", "en")
		require.NoError(t, err)
		assert.Equal(t, []string{"sit", "drink", "go"}, s.Descriptions)
	})

	t.Run("yml translation", func(t *testing.T) {
		s, err := c.GetScript(ctx, "dusty_barkeep_cutscene", "de")
		require.NoError(t, err)
		assert.Equal(t, "nein", s.DeclineLabel())
	})

	t.Run("falls back to default language", func(t *testing.T) {
		s, err := c.GetScript(ctx, "dusty_barkeep_cutscene", "fr")
		require.NoError(t, err)
		assert.Equal(t, "sit", s.Descriptions[0])
	})

	t.Run("missing script is a configuration error", func(t *testing.T) {
		_, err := c.GetScript(ctx, "nobody_cutscene", "en")
		assert.ErrorIs(t, err, storage.ErrScriptNotFound)
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		_, err := c.GetScript(ctx, "../bartenders/starbucks_bartender", "en")
		assert.ErrorIs(t, err, storage.ErrScriptNotFound)
	})

	t.Run("invalid script", func(t *testing.T) {
		_, err := c.GetScript(ctx, "too_short_cutscene", "en")
		require.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrScriptNotFound)
	})
}

func TestContent_EmbeddedDefaults(t *testing.T) {
	c := NewContent(data.FS(), "en", testLogger())
	ctx := context.Background()

	ids, err := c.ListBartenders(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	for _, id := range ids {
		b, err := c.GetBartender(ctx, id)
		require.NoError(t, err, id)
		for _, lang := range c.Languages() {
			_, err := c.GetScript(ctx, b.ScriptKey(), lang)
			require.NoError(t, err, "%s in %s", b.ScriptKey(), lang)
		}
	}

	patrons, err := c.ListPatrons(ctx)
	require.NoError(t, err)
	for _, id := range patrons {
		_, err := c.GetPatronSpec(ctx, id)
		require.NoError(t, err, id)
	}
}
