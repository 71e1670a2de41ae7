package dialogue

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidScript is returned when a script cannot drive an interaction
var ErrInvalidScript = errors.New("invalid dialogue script")

// Script is the static text for one kind of bartender interaction.
// It is loaded once and never mutated
type Script struct {
	Key           string   `json:"key,omitempty" yaml:"key,omitempty"`
	Descriptions  []string `json:"descriptions" yaml:"descriptions"`
	Options       []string `json:"options" yaml:"options"`                                   // Options[0] is the decline label
	BlockingTexts []string `json:"blocking_texts,omitempty" yaml:"blocking_texts,omitempty"` // shown once the transaction is done
}

// Validate checks that the script has a greeting, a goodbye line and a decline label
func (s *Script) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: script is nil", ErrInvalidScript)
	}
	if len(s.Descriptions) < 2 {
		return fmt.Errorf("%w: %q needs at least 2 descriptions, has %d", ErrInvalidScript, s.Key, len(s.Descriptions))
	}
	if len(s.Options) == 0 || strings.TrimSpace(s.Options[0]) == "" {
		return fmt.Errorf("%w: %q has no decline label", ErrInvalidScript, s.Key)
	}
	return nil
}

// Terminal returns the index of the goodbye line
func (s *Script) Terminal() int {
	return len(s.Descriptions) - 1
}

// Line returns the description at index i, clamped into range
func (s *Script) Line(i int) string {
	if len(s.Descriptions) == 0 {
		return ""
	}
	if i < 0 {
		i = 0
	}
	if i > s.Terminal() {
		i = s.Terminal()
	}
	return s.Descriptions[i]
}

// DeclineLabel returns the "No thanks" label
func (s *Script) DeclineLabel() string {
	if len(s.Options) == 0 {
		return ""
	}
	return s.Options[0]
}

// BlockingText returns the blocking line at index i.
// Out-of-range indexes fall back to the first blocking line, then to the goodbye line
func (s *Script) BlockingText(i int) string {
	if i >= 0 && i < len(s.BlockingTexts) {
		return s.BlockingTexts[i]
	}
	if len(s.BlockingTexts) > 0 {
		return s.BlockingTexts[0]
	}
	return s.Line(s.Terminal())
}
