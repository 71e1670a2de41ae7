// Package dialogue implements the bartender interaction state machine: which
// line is shown, which options are offered, and what choosing one does
package dialogue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOptionNotOffered is returned for an option outside the last published set
	ErrOptionNotOffered = errors.New("option not offered")
	// ErrInteractionClosed is returned for input after the interaction ended
	ErrInteractionClosed = errors.New("interaction closed")
)

// Presenter renders what the controller publishes
type Presenter interface {
	PublishLine(text string)
	PublishOptions(opts []Option)
	CloseInteraction()
}

// EffectApplier performs the gameplay side of the heal and secondary options
type EffectApplier interface {
	ApplyHeal()
	ApplySecondaryEffect()
}

// Content is the static input of one interaction
type Content struct {
	Script      *Script
	HealLabel   string
	SecondLabel string // empty when the bartender has no secondary option
	Flavor      FlavorProvider

	// ReoffersOptionsOnAdvance publishes the option set again whenever a plain
	// advance lands on a middle line
	ReoffersOptionsOnAdvance bool
}

// SecondAvailable reports whether the content defines a secondary option
func (c Content) SecondAvailable() bool {
	return strings.TrimSpace(c.SecondLabel) != ""
}

// Controller drives a single interaction. It is not safe for concurrent use;
// input is expected one event at a time
type Controller struct {
	content   Content
	state     *State
	presenter Presenter
	effects   EffectApplier
}

// NewController wraps st with the rules of content. A nil st starts a fresh
// interaction
func NewController(content Content, st *State, presenter Presenter, effects EffectApplier) (*Controller, error) {
	if err := content.Script.Validate(); err != nil {
		return nil, err
	}
	if presenter == nil {
		return nil, errors.New("presenter is required")
	}
	if effects == nil {
		return nil, errors.New("effect applier is required")
	}
	if content.Flavor == nil {
		content.Flavor = NoFlavor
	}
	if st == nil {
		st = NewState(content.SecondAvailable())
	}
	if st.Cursor < 0 || st.Cursor > content.Script.Terminal() {
		return nil, fmt.Errorf("cursor %d out of range for script %q", st.Cursor, content.Script.Key)
	}
	return &Controller{
		content:   content,
		state:     st,
		presenter: presenter,
		effects:   effects,
	}, nil
}

// State returns the live state. Callers must not modify it
func (c *Controller) State() *State {
	return c.state
}

// Phase returns the current phase
func (c *Controller) Phase() Phase {
	return PhaseAt(c.state.Cursor, c.content.Script.Terminal())
}

// Start publishes the line at the cursor. It is called once when the
// interaction opens
func (c *Controller) Start() {
	c.presenter.PublishLine(c.content.Script.Line(c.state.Cursor))
}

// Advance handles a click on the dialogue box
func (c *Controller) Advance() error {
	if c.state.Closed {
		return ErrInteractionClosed
	}
	last := c.content.Script.Terminal()
	switch {
	case c.state.Cursor == 0:
		c.moveTo(nextCursor(c.state.Cursor, last, eventAdvance))
		c.offer()
	case c.state.Cursor >= last:
		c.state.Offered = nil
		c.state.Closed = true
		c.presenter.CloseInteraction()
	default:
		c.moveTo(nextCursor(c.state.Cursor, last, eventAdvance))
		if c.content.ReoffersOptionsOnAdvance && !c.state.Completed {
			c.offer()
		}
	}
	return nil
}

// Select handles the choice of one of the offered options
func (c *Controller) Select(id OptionID) error {
	if c.state.Closed {
		return ErrInteractionClosed
	}
	if _, ok := c.state.offers(id); !ok {
		return fmt.Errorf("%w: %q", ErrOptionNotOffered, id)
	}

	switch {
	case id == OptionHeal:
		c.effects.ApplyHeal()
		c.state.HealUsed = true
		c.afterGameplayChoice()
	case id == OptionSecond:
		c.effects.ApplySecondaryEffect()
		c.state.SecondUsed = true
		c.afterGameplayChoice()
	case id == OptionDecline:
		if c.state.AllGameplayOptionsDone() {
			c.state.Completed = true
		}
		c.moveTo(nextCursor(c.state.Cursor, c.content.Script.Terminal(), eventDecline))
	case id.IsFlavor():
		c.presenter.PublishLine(c.flavorReply(id))
		c.presenter.PublishOptions(c.state.Offered)
	default:
		return fmt.Errorf("%w: %q", ErrOptionNotOffered, id)
	}
	return nil
}

// OfferedOptions computes the option set for the current state in the fixed
// order heal, second, flavor, decline
func (c *Controller) OfferedOptions() []Option {
	var opts []Option
	if !c.state.HealUsed {
		opts = append(opts, Option{ID: OptionHeal, Label: c.content.HealLabel})
	}
	if !c.state.SecondUsed && c.state.SecondAvailable {
		opts = append(opts, Option{ID: OptionSecond, Label: c.content.SecondLabel})
	}
	for _, f := range c.content.Flavor.FlavorOptions(c.state) {
		opts = append(opts, Option{ID: FlavorOptionID(f.Key), Label: f.Label})
	}
	return append(opts, Option{ID: OptionDecline, Label: c.content.Script.DeclineLabel()})
}

func (c *Controller) afterGameplayChoice() {
	c.moveTo(nextCursor(c.state.Cursor, c.content.Script.Terminal(), eventGameplayChoice))
	if !c.state.AllGameplayOptionsDone() {
		c.offer()
		return
	}
	// Trade is resolved: no more choices at this node, flavor included
	c.state.Completed = true
}

// moveTo sets the cursor and publishes its line. Any published options are
// dropped with the old line
func (c *Controller) moveTo(cursor int) {
	c.state.Cursor = cursor
	c.state.Offered = nil
	c.presenter.PublishLine(c.content.Script.Line(cursor))
}

func (c *Controller) offer() {
	c.state.Offered = c.OfferedOptions()
	c.presenter.PublishOptions(c.state.Offered)
}

func (c *Controller) flavorReply(id OptionID) string {
	key := id.FlavorKey()
	for _, f := range c.content.Flavor.FlavorOptions(c.state) {
		if f.Key != key {
			continue
		}
		if f.Reply != "" {
			return f.Reply
		}
		return f.Label
	}
	return c.content.Script.Line(c.state.Cursor)
}
