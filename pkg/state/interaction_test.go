package state

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInteraction(t *testing.T) {
	i := NewInteraction("starbucks_bartender", "wanderer", "en")

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", i.ID.String())
	assert.Equal(t, "starbucks_bartender", i.BartenderID)
	assert.False(t, i.Closed())
	assert.Equal(t, dialogue.PhaseGreeting, i.Phase())
	assert.False(t, i.CreatedAt.IsZero())
}

func TestInteraction_AddTranscript(t *testing.T) {
	i := NewInteraction("b", "p", "")
	i.AddTranscript(SpeakerBartender, "")
	assert.Empty(t, i.Transcript)

	for n := 0; n < TranscriptLimit+5; n++ {
		i.AddTranscript(SpeakerBartender, fmt.Sprintf("line %d", n))
	}
	require.Len(t, i.Transcript, TranscriptLimit)
	assert.Equal(t, "line 5", i.Transcript[0].Text)
	assert.Equal(t, fmt.Sprintf("line %d", TranscriptLimit+4), i.Transcript[TranscriptLimit-1].Text)
}

func TestInteraction_View(t *testing.T) {
	i := NewInteraction("b", "p", "en")
	i.Terminal = 3
	i.Dialogue.Cursor = 1
	i.Dialogue.HealUsed = true
	i.Line = "midA"

	v := i.View()
	assert.Equal(t, dialogue.PhaseOffering, v.Phase)
	assert.NotNil(t, v.Options, "options should encode as an empty list")
	assert.True(t, v.HealUsed)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"offering"`)
	assert.Contains(t, string(data), `"options":[]`)
}

func TestInteraction_JSONRoundTrip(t *testing.T) {
	i := NewInteraction("b", "p", "en")
	i.Terminal = 3
	i.Dialogue = dialogue.State{Cursor: 2, HealUsed: true, SecondAvailable: true,
		Offered: []dialogue.Option{{ID: dialogue.OptionSecond, Label: "Second"}}}

	data, err := json.Marshal(i)
	require.NoError(t, err)

	var restored Interaction
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, i.ID, restored.ID)
	assert.Equal(t, i.Dialogue, restored.Dialogue)
}
