package dialogue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCursor(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		last   int
		ev     event
		want   int
	}{
		{"advance from greeting", 0, 3, eventAdvance, 1},
		{"advance mid script", 1, 3, eventAdvance, 2},
		{"advance clamps at last", 3, 3, eventAdvance, 3},
		{"gameplay choice moves one line", 1, 3, eventGameplayChoice, 2},
		{"gameplay choice clamps", 1, 1, eventGameplayChoice, 1},
		{"decline jumps to last", 1, 5, eventDecline, 5},
		{"decline from greeting", 0, 5, eventDecline, 5},
		{"negative cursor recovers", -2, 3, eventAdvance, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextCursor(tt.cursor, tt.last, tt.ev))
		})
	}
}

func TestPhaseAt(t *testing.T) {
	assert.Equal(t, PhaseGreeting, PhaseAt(0, 3))
	assert.Equal(t, PhaseOffering, PhaseAt(1, 3))
	assert.Equal(t, PhaseOffering, PhaseAt(2, 3))
	assert.Equal(t, PhaseTerminal, PhaseAt(3, 3))
	assert.Equal(t, PhaseTerminal, PhaseAt(1, 1))
}

func TestPhase_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Phase{"phase": PhaseOffering})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"offering"}`, string(data))

	var p Phase
	require.NoError(t, p.UnmarshalText([]byte("Terminal")))
	assert.Equal(t, PhaseTerminal, p)
	assert.Error(t, p.UnmarshalText([]byte("lobby")))
}

func TestState_AllGameplayOptionsDone(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"fresh without second", State{}, false},
		{"heal used without second", State{HealUsed: true}, true},
		{"heal used with second pending", State{HealUsed: true, SecondAvailable: true}, false},
		{"second used only", State{SecondUsed: true, SecondAvailable: true}, false},
		{"both used", State{HealUsed: true, SecondUsed: true, SecondAvailable: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.AllGameplayOptionsDone())
		})
	}
}

func TestState_DeclineAfterAllDoneCompletes(t *testing.T) {
	st := &State{Cursor: 2, HealUsed: true, Offered: []Option{{ID: OptionDecline, Label: "No thanks"}}}
	c, err := NewController(Content{Script: testScript(), HealLabel: "Heal"}, st, &Recorder{}, &countingEffects{})
	require.NoError(t, err)

	require.NoError(t, c.Select(OptionDecline))
	assert.True(t, st.Completed)
	assert.Equal(t, 3, st.Cursor)
}

func TestOptionID_Flavor(t *testing.T) {
	id := FlavorOptionID("weather")
	assert.True(t, id.IsFlavor())
	assert.Equal(t, "weather", id.FlavorKey())
	assert.False(t, OptionHeal.IsFlavor())
	assert.Equal(t, "", OptionDecline.FlavorKey())
}

func TestScript_Validate(t *testing.T) {
	tests := []struct {
		name    string
		script  *Script
		wantErr bool
	}{
		{"valid", testScript(), false},
		{"nil", nil, true},
		{"single line", &Script{Descriptions: []string{"bye"}, Options: []string{"No"}}, true},
		{"missing decline", &Script{Descriptions: []string{"hi", "bye"}}, true},
		{"blank decline", &Script{Descriptions: []string{"hi", "bye"}, Options: []string{"  "}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.script.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScript)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScript_Lines(t *testing.T) {
	s := testScript()
	s.BlockingTexts = []string{"Come back later.", "We're closed."}

	assert.Equal(t, 3, s.Terminal())
	assert.Equal(t, "greet", s.Line(-1))
	assert.Equal(t, "bye", s.Line(10))
	assert.Equal(t, "No thanks", s.DeclineLabel())
	assert.Equal(t, "We're closed.", s.BlockingText(1))
	assert.Equal(t, "Come back later.", s.BlockingText(7))

	s.BlockingTexts = nil
	assert.Equal(t, "bye", s.BlockingText(0))
}
