package dialogue

import (
	"fmt"
	"strings"
)

// Phase is the coarse position of an interaction in its script
type Phase int

const (
	PhaseGreeting Phase = iota
	PhaseOffering
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseGreeting:
		return "greeting"
	case PhaseOffering:
		return "offering"
	case PhaseTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "greeting":
		*p = PhaseGreeting
	case "offering":
		*p = PhaseOffering
	case "terminal":
		*p = PhaseTerminal
	default:
		return fmt.Errorf("unknown phase %q", string(text))
	}
	return nil
}

// PhaseAt returns the phase for a cursor in a script whose goodbye line is at last
func PhaseAt(cursor, last int) Phase {
	switch {
	case cursor <= 0:
		return PhaseGreeting
	case cursor >= last:
		return PhaseTerminal
	default:
		return PhaseOffering
	}
}

// event is an input that moves the cursor
type event int

const (
	eventAdvance event = iota
	eventGameplayChoice
	eventDecline
)

// nextCursor computes the cursor after ev. The result is always within [0, last]
func nextCursor(cursor, last int, ev event) int {
	switch ev {
	case eventDecline:
		return last
	case eventAdvance, eventGameplayChoice:
		if cursor+1 > last {
			return last
		}
		if cursor < 0 {
			return 0
		}
		return cursor + 1
	default:
		return cursor
	}
}

// State is the mutable part of one interaction. It is persisted between
// requests and only changed through a Controller
type State struct {
	Cursor          int      `json:"cursor"`
	HealUsed        bool     `json:"heal_used"`
	SecondUsed      bool     `json:"second_used"`
	SecondAvailable bool     `json:"second_available"`
	Completed       bool     `json:"completed"`
	Closed          bool     `json:"closed"`
	Offered         []Option `json:"offered,omitempty"` // last published option set
}

// NewState returns the state of an interaction that has not started yet
func NewState(secondAvailable bool) *State {
	return &State{SecondAvailable: secondAvailable}
}

// AllGameplayOptionsDone reports whether heal and, when it exists, the
// secondary option have both been used
func (s *State) AllGameplayOptionsDone() bool {
	return s.HealUsed && (!s.SecondAvailable || s.SecondUsed)
}

func (s *State) offers(id OptionID) (Option, bool) {
	for _, o := range s.Offered {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}
