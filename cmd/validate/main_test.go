package main

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/tavern-engine/data"
)

func validFS() fstest.MapFS {
	return fstest.MapFS{
		"bartenders/barista.json": {Data: []byte(`{
			"name": "Barista",
			"heal_description": "Heal 10 HP.",
			"heal_amount": 10,
			"flavor_options": [{"key": "beans", "label": "Beans?", "reply": "Far away."}],
			"blocking_dialogue_index": 1
		}`)},
		"patrons/wanderer.json": {Data: []byte(`{"name": "The Wanderer", "hp": 10, "max_hp": 20}`)},
		"scripts/en/barista_cutscene.yaml": {Data: []byte(`
descriptions:
  - Welcome in!
  - Here you go.
  - Bye.
options:
  - No thanks.
blocking_texts:
  - Sold out.
  - Come back tomorrow.
`)},
		"scripts/fr/barista_cutscene.json": {Data: []byte(`{"descriptions": ["Salut", "Voila", "Au revoir"], "options": ["Non merci."]}`)},
	}
}

func TestContentValidator_Valid(t *testing.T) {
	v := &ContentValidator{fsys: validFS(), defaultLanguage: "en"}
	require.NoError(t, v.Validate())
}

func TestContentValidator_ShippedContent(t *testing.T) {
	v := &ContentValidator{fsys: data.FS(), defaultLanguage: defaultLanguage}
	require.NoError(t, v.Validate())
}

func TestContentValidator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(fstest.MapFS)
		wantErr string
	}{
		{
			name: "unknown bartender field",
			mutate: func(m fstest.MapFS) {
				m["bartenders/barista.json"] = &fstest.MapFile{Data: []byte(`{"heal_description": "Heal", "heal_amount": 1, "heal_amout": 2}`)}
			},
			wantErr: "unknown field",
		},
		{
			name: "missing script",
			mutate: func(m fstest.MapFS) {
				delete(m, "scripts/en/barista_cutscene.yaml")
			},
			wantErr: "script 'barista_cutscene' not found",
		},
		{
			name: "blocking index out of range",
			mutate: func(m fstest.MapFS) {
				m["bartenders/barista.json"] = &fstest.MapFile{Data: []byte(`{"heal_description": "Heal", "heal_amount": 1, "blocking_dialogue_index": 5}`)}
			},
			wantErr: "blocking_dialogue_index 5 out of range",
		},
		{
			name: "single description",
			mutate: func(m fstest.MapFS) {
				m["scripts/fr/barista_cutscene.json"] = &fstest.MapFile{Data: []byte(`{"descriptions": ["Salut"], "options": ["Non"]}`)}
			},
			wantErr: "needs at least 2 descriptions",
		},
		{
			name: "unknown yaml field",
			mutate: func(m fstest.MapFS) {
				m["scripts/en/barista_cutscene.yaml"] = &fstest.MapFile{Data: []byte("descriptions: [a, b]\noptions: [no]\nextra: 1\n")}
			},
			wantErr: "strict YAML",
		},
		{
			name: "bad filename",
			mutate: func(m fstest.MapFS) {
				m["bartenders/Bad-Name.json"] = &fstest.MapFile{Data: []byte(`{"heal_description": "Heal", "heal_amount": 1, "script": "barista_cutscene"}`)}
			},
			wantErr: "should be lowercase snake_case",
		},
		{
			name: "patron without max hp",
			mutate: func(m fstest.MapFS) {
				m["patrons/ghost.json"] = &fstest.MapFile{Data: []byte(`{"name": "Ghost"}`)}
			},
			wantErr: "max_hp must be positive",
		},
		{
			name: "mismatched id",
			mutate: func(m fstest.MapFS) {
				m["bartenders/barista.json"] = &fstest.MapFile{Data: []byte(`{"id": "other", "heal_description": "Heal", "heal_amount": 1}`)}
			},
			wantErr: "does not match filename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := validFS()
			tt.mutate(fsys)
			v := &ContentValidator{fsys: fsys, defaultLanguage: "en"}
			err := v.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsValidID(t *testing.T) {
	assert.True(t, isValidID("starbucks_bartender"))
	assert.True(t, isValidID("a"))
	assert.False(t, isValidID("Starbucks"))
	assert.False(t, isValidID("dusty-barkeep"))
	assert.False(t, isValidID("trailing_"))
}
