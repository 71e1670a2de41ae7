package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

// Transcript speakers
const (
	SpeakerBartender = "bartender"
	SpeakerPatron    = "patron"
)

// TranscriptLimit caps how many transcript entries an interaction keeps
const TranscriptLimit = 100

// TranscriptEntry is one line said during an interaction
type TranscriptEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Interaction is one patron's conversation with one bartender
type Interaction struct {
	ID          uuid.UUID         `json:"id"`
	BartenderID string            `json:"bartender_id"`
	PatronID    string            `json:"patron_id"`
	Language    string            `json:"language,omitempty"`
	ScriptKey   string            `json:"script_key"`
	Terminal    int               `json:"terminal"` // index of the goodbye line
	Dialogue    dialogue.State    `json:"dialogue"`
	Line        string            `json:"line"`              // last line shown
	Blocked     bool              `json:"blocked,omitempty"` // opened after the transaction was already performed
	Transcript  []TranscriptEntry `json:"transcript,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewInteraction creates an interaction that has not shown any line yet
func NewInteraction(bartenderID, patronID, language string) *Interaction {
	now := time.Now()
	return &Interaction{
		ID:          uuid.New(),
		BartenderID: bartenderID,
		PatronID:    patronID,
		Language:    language,
		Transcript:  make([]TranscriptEntry, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Closed reports whether the interaction accepts no more input
func (i *Interaction) Closed() bool {
	return i.Dialogue.Closed
}

// Phase returns the dialogue phase
func (i *Interaction) Phase() dialogue.Phase {
	return dialogue.PhaseAt(i.Dialogue.Cursor, i.Terminal)
}

// AddTranscript appends a line, dropping the oldest entries past TranscriptLimit
func (i *Interaction) AddTranscript(speaker, text string) {
	if text == "" {
		return
	}
	i.Transcript = append(i.Transcript, TranscriptEntry{Speaker: speaker, Text: text})
	if len(i.Transcript) > TranscriptLimit {
		i.Transcript = i.Transcript[len(i.Transcript)-TranscriptLimit:]
	}
}

// View is the client-facing snapshot of an interaction
type View struct {
	ID          uuid.UUID         `json:"id"`
	BartenderID string            `json:"bartender_id"`
	PatronID    string            `json:"patron_id"`
	Phase       dialogue.Phase    `json:"phase"`
	Line        string            `json:"line"`
	Options     []dialogue.Option `json:"options"`
	HealUsed    bool              `json:"heal_used"`
	SecondUsed  bool              `json:"second_used"`
	Completed   bool              `json:"completed"`
	Closed      bool              `json:"closed"`
	Blocked     bool              `json:"blocked,omitempty"`
}

// View projects the interaction for API responses
func (i *Interaction) View() View {
	opts := i.Dialogue.Offered
	if opts == nil {
		opts = []dialogue.Option{}
	}
	return View{
		ID:          i.ID,
		BartenderID: i.BartenderID,
		PatronID:    i.PatronID,
		Phase:       i.Phase(),
		Line:        i.Line,
		Options:     opts,
		HealUsed:    i.Dialogue.HealUsed,
		SecondUsed:  i.Dialogue.SecondUsed,
		Completed:   i.Dialogue.Completed,
		Closed:      i.Dialogue.Closed,
		Blocked:     i.Blocked,
	}
}
