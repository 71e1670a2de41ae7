package actor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

// Secondary effect kinds
const (
	EffectItem  = "item"   // adds Item to the patron's inventory
	EffectGold  = "gold"   // adds Amount gold (negative amounts charge the patron)
	EffectMaxHP = "max_hp" // raises max HP by Amount and heals the same
)

// ScriptSuffix is appended to a bartender ID to derive its script key
const ScriptSuffix = "_cutscene"

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// ValidID reports whether id is a lowercase snake_case content ID. Bartender
// and patron IDs name files and key transaction flags, so they have exactly
// one spelling
func ValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

// SecondaryEffect describes what the secondary option does to the patron
type SecondaryEffect struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
	Item   string `json:"item,omitempty"`
}

// SecondOption is the bartender's optional second gameplay option
type SecondOption struct {
	Description string          `json:"description"`
	Effect      SecondaryEffect `json:"effect"`
}

// BartenderSpec describes a bartender character
type BartenderSpec struct {
	ID                    string                  `json:"id"`
	Name                  string                  `json:"name"`
	Description           string                  `json:"description,omitempty"`
	Script                string                  `json:"script,omitempty"` // overrides the derived script key
	HealDescription       string                  `json:"heal_description"`
	HealAmount            int                     `json:"heal_amount"`
	SecondOption          *SecondOption           `json:"second_option,omitempty"`
	FlavorOptions         []dialogue.FlavorOption `json:"flavor_options,omitempty"`
	BlockingDialogueIndex int                     `json:"blocking_dialogue_index,omitempty"`
	ReoffersOptions       bool                    `json:"reoffers_options,omitempty"` // show options again on every click
}

// ScriptKey returns the key of the script this bartender speaks from.
// e.g. "starbucks_bartender" -> "starbucks_bartender_cutscene"
func (b *BartenderSpec) ScriptKey() string {
	if b.Script != "" {
		return b.Script
	}
	return b.ID + ScriptSuffix
}

// SecondOptionDescription returns the label of the secondary option, or "" if there is none
func (b *BartenderSpec) SecondOptionDescription() string {
	if b.SecondOption == nil {
		return ""
	}
	return strings.TrimSpace(b.SecondOption.Description)
}

// Content combines the bartender with its script for the dialogue controller
func (b *BartenderSpec) Content(script *dialogue.Script) dialogue.Content {
	return dialogue.Content{
		Script:                   script,
		HealLabel:                b.HealDescription,
		SecondLabel:              b.SecondOptionDescription(),
		Flavor:                   dialogue.StaticFlavor(b.FlavorOptions),
		ReoffersOptionsOnAdvance: b.ReoffersOptions,
	}
}

// Validate checks the fields the interaction depends on
func (b *BartenderSpec) Validate() error {
	var errs []error
	if b.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if strings.TrimSpace(b.HealDescription) == "" {
		errs = append(errs, errors.New("heal_description is required"))
	}
	if b.HealAmount < 0 {
		errs = append(errs, fmt.Errorf("heal_amount must not be negative, got %d", b.HealAmount))
	}
	if b.BlockingDialogueIndex < 0 {
		errs = append(errs, fmt.Errorf("blocking_dialogue_index must not be negative, got %d", b.BlockingDialogueIndex))
	}
	if b.SecondOptionDescription() != "" {
		if err := b.SecondOption.Effect.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	seen := make(map[string]bool, len(b.FlavorOptions))
	for i, f := range b.FlavorOptions {
		if f.Key == "" {
			errs = append(errs, fmt.Errorf("flavor_options[%d]: key is required", i))
			continue
		}
		if seen[f.Key] {
			errs = append(errs, fmt.Errorf("flavor_options[%d]: duplicate key %q", i, f.Key))
		}
		seen[f.Key] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("bartender %q: %w", b.ID, errors.Join(errs...))
	}
	return nil
}

// Validate checks that the effect kind is known and has what it needs
func (e SecondaryEffect) Validate() error {
	switch e.Kind {
	case EffectItem:
		if e.Item == "" {
			return errors.New("item effect requires an item")
		}
	case EffectGold:
		if e.Amount == 0 {
			return errors.New("gold effect requires a non-zero amount")
		}
	case EffectMaxHP:
		if e.Amount <= 0 {
			return errors.New("max_hp effect requires a positive amount")
		}
	default:
		return fmt.Errorf("unknown secondary effect kind %q", e.Kind)
	}
	return nil
}
