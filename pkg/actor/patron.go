package actor

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/d20"
)

// PatronSpec is the serializable specification for the patron a bartender serves
type PatronSpec struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Pronouns    string         `json:"pronouns,omitempty"`
	Description string         `json:"description,omitempty"`
	HP          int            `json:"hp,omitempty"` // Current HP (for serialization)
	MaxHP       int            `json:"max_hp"`
	AC          int            `json:"ac,omitempty"`
	Gold        int            `json:"gold,omitempty"`
	Attributes  map[string]int `json:"attributes,omitempty"`
	Inventory   []string       `json:"inventory,omitempty"`
}

// Patron is the runtime representation of a patron
type Patron struct {
	Spec  *PatronSpec
	Actor *d20.Actor // Built at runtime from PatronSpec
}

// NewPatronFromSpec creates a Patron and its d20.Actor from a spec
func NewPatronFromSpec(spec *PatronSpec) (*Patron, error) {
	if spec == nil {
		return nil, errors.New("spec cannot be nil")
	}
	actor, err := buildActor(spec)
	if err != nil {
		return nil, err
	}
	return &Patron{Spec: spec, Actor: actor}, nil
}

func buildActor(spec *PatronSpec) (*d20.Actor, error) {
	if spec.MaxHP <= 0 {
		return nil, fmt.Errorf("patron %q: max_hp must be positive", spec.ID)
	}

	attrs := make(map[string]int, len(spec.Attributes))
	maps.Copy(attrs, spec.Attributes)

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// Zero HP in a spec means "not set", i.e. full health
	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := actor.SetHP(min(spec.HP, spec.MaxHP)); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return actor, nil
}

// HP returns the current hit points
func (p *Patron) HP() int {
	return p.Actor.HP()
}

// MaxHP returns the maximum hit points
func (p *Patron) MaxHP() int {
	return p.Actor.MaxHP()
}

// Heal increases HP by n, never past MaxHP. Non-positive amounts are ignored
func (p *Patron) Heal(n int) error {
	if n <= 0 {
		return nil
	}
	hp := min(p.Actor.HP()+n, p.Actor.MaxHP())
	if err := p.Actor.SetHP(hp); err != nil {
		return fmt.Errorf("failed to heal patron %q: %w", p.Spec.ID, err)
	}
	return nil
}

// RaiseMaxHP increases MaxHP by n and heals by the same amount
func (p *Patron) RaiseMaxHP(n int) error {
	if n <= 0 {
		return nil
	}
	spec := p.Snapshot()
	spec.MaxHP += n
	spec.HP += n
	actor, err := buildActor(spec)
	if err != nil {
		return err
	}
	p.Spec = spec
	p.Actor = actor
	return nil
}

// AddGold adjusts gold. Gold never drops below zero
func (p *Patron) AddGold(n int) {
	p.Spec.Gold = max(p.Spec.Gold+n, 0)
}

// AddItem puts an item in the inventory
func (p *Patron) AddItem(item string) {
	if item == "" {
		return
	}
	p.Spec.Inventory = append(p.Spec.Inventory, item)
}

// HasItem reports whether the inventory holds item
func (p *Patron) HasItem(item string) bool {
	return slices.Contains(p.Spec.Inventory, item)
}

// Snapshot returns a copy of the spec with HP read back from the Actor
func (p *Patron) Snapshot() *PatronSpec {
	spec := *p.Spec
	spec.Attributes = maps.Clone(p.Spec.Attributes)
	spec.Inventory = slices.Clone(p.Spec.Inventory)
	if p.Actor != nil {
		spec.HP = p.Actor.HP()
		spec.MaxHP = p.Actor.MaxHP()
		spec.AC = p.Actor.AC()
	}
	return &spec
}

// MarshalJSON serializes the patron in PatronSpec format
func (p *Patron) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	if p.Actor == nil {
		return json.Marshal(p.Spec)
	}
	return json.Marshal(p.Snapshot())
}

// UnmarshalJSON reconstructs a patron from JSON and rebuilds its Actor
func (p *Patron) UnmarshalJSON(data []byte) error {
	var spec PatronSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to unmarshal patron spec: %w", err)
	}
	actor, err := buildActor(&spec)
	if err != nil {
		return fmt.Errorf("failed to rebuild actor: %w", err)
	}
	p.Spec = &spec
	p.Actor = actor
	return nil
}
