package actor

import (
	"log/slog"

	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

// PatronEffects applies a bartender's gameplay options to a patron.
// Effects are fire-and-forget for the dialogue; failures are logged
type PatronEffects struct {
	Patron    *Patron
	Bartender *BartenderSpec
	Logger    *slog.Logger

	// Applied lists the effects that ran, in order
	Applied []string
}

var _ dialogue.EffectApplier = (*PatronEffects)(nil)

func (e *PatronEffects) ApplyHeal() {
	before := e.Patron.HP()
	if err := e.Patron.Heal(e.Bartender.HealAmount); err != nil {
		e.Logger.Error("Failed to apply heal", "patron_id", e.Patron.Spec.ID, "bartender_id", e.Bartender.ID, "error", err)
		return
	}
	e.Applied = append(e.Applied, "heal")
	e.Logger.Debug("Heal applied",
		"patron_id", e.Patron.Spec.ID,
		"bartender_id", e.Bartender.ID,
		"hp_before", before,
		"hp_after", e.Patron.HP())
}

func (e *PatronEffects) ApplySecondaryEffect() {
	if e.Bartender.SecondOption == nil {
		e.Logger.Warn("Secondary effect requested but bartender has none", "bartender_id", e.Bartender.ID)
		return
	}
	effect := e.Bartender.SecondOption.Effect
	switch effect.Kind {
	case EffectItem:
		e.Patron.AddItem(effect.Item)
	case EffectGold:
		e.Patron.AddGold(effect.Amount)
	case EffectMaxHP:
		if err := e.Patron.RaiseMaxHP(effect.Amount); err != nil {
			e.Logger.Error("Failed to raise max HP", "patron_id", e.Patron.Spec.ID, "error", err)
			return
		}
	default:
		e.Logger.Warn("Unknown secondary effect", "bartender_id", e.Bartender.ID, "kind", effect.Kind)
		return
	}
	e.Applied = append(e.Applied, effect.Kind)
	e.Logger.Debug("Secondary effect applied",
		"patron_id", e.Patron.Spec.ID,
		"bartender_id", e.Bartender.ID,
		"kind", effect.Kind)
}
