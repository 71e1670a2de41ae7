// Package tavern runs bartender interactions on top of storage: it rebuilds
// the dialogue controller for every input, persists the result and fans the
// published lines and options out as events
package tavern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/internal/metrics"
	"github.com/jwebster45206/tavern-engine/internal/services/events"
	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

var (
	// ErrInteractionNotFound is returned for unknown or expired interaction IDs
	ErrInteractionNotFound = fmt.Errorf("interaction %w", storage.ErrNotFound)
	// ErrBadRequest is returned for input that is malformed before any rule applies
	ErrBadRequest = errors.New("bad request")
	// ErrInteractionBusy is returned when another input for the same interaction is in flight
	ErrInteractionBusy = errors.New("interaction is handling another input")
)

const inputLockTTL = 30 * time.Second

// StartRequest opens an interaction between a patron and a bartender
type StartRequest struct {
	BartenderID string `json:"bartender_id"`
	PatronID    string `json:"patron_id"`
	Language    string `json:"language,omitempty"`
}

// Service coordinates interactions. Each call handles one input event
type Service struct {
	storage storage.Storage
	events  events.Publisher
	logger  *slog.Logger
}

// NewService creates an interaction service. A nil publisher discards events
func NewService(st storage.Storage, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		storage: st,
		events:  publisher,
		logger:  logger,
	}
}

// Start opens a new interaction. A missing script fails here, before anything is saved.
// If the patron already completed the transaction with this bartender, the
// interaction opens blocked: it shows the blocking line and is closed
func (s *Service) Start(ctx context.Context, req StartRequest) (*state.Interaction, error) {
	if req.BartenderID == "" || req.PatronID == "" {
		return nil, fmt.Errorf("%w: bartender_id and patron_id are required", ErrBadRequest)
	}
	if !actor.ValidID(req.BartenderID) || !actor.ValidID(req.PatronID) {
		return nil, fmt.Errorf("%w: bartender_id and patron_id must be lowercase snake_case", ErrBadRequest)
	}

	bartender, err := s.storage.GetBartender(ctx, req.BartenderID)
	if err != nil {
		return nil, err
	}
	script, err := s.storage.GetScript(ctx, bartender.ScriptKey(), req.Language)
	if err != nil {
		s.logger.Error("Failed to load script for bartender", "bartender_id", bartender.ID, "script", bartender.ScriptKey(), "error", err)
		return nil, err
	}
	patron, err := s.storage.LoadPatron(ctx, req.PatronID)
	if err != nil {
		return nil, err
	}

	performed, err := s.storage.IsTransactionPerformed(ctx, req.PatronID, req.BartenderID)
	if err != nil {
		return nil, err
	}

	it := state.NewInteraction(bartender.ID, patron.Spec.ID, req.Language)
	it.ScriptKey = script.Key
	it.Terminal = script.Terminal()

	rec := &dialogue.Recorder{}
	if performed {
		it.Blocked = true
		it.Dialogue = dialogue.State{
			Cursor:          script.Terminal(),
			SecondAvailable: bartender.SecondOptionDescription() != "",
			Completed:       true,
			Closed:          true,
		}
		rec.PublishLine(script.BlockingText(bartender.BlockingDialogueIndex))
		rec.CloseInteraction()
	} else {
		ctrl, err := dialogue.NewController(bartender.Content(script), nil, rec, s.effects(patron, bartender))
		if err != nil {
			return nil, err
		}
		ctrl.Start()
		it.Dialogue = *ctrl.State()
	}
	s.record(it, rec)

	if err := s.storage.SaveInteraction(ctx, it); err != nil {
		return nil, err
	}

	metrics.InteractionsStarted.WithLabelValues(bartender.ID, strconv.FormatBool(it.Blocked)).Inc()
	s.logger.Info("Interaction started",
		"interaction_id", it.ID,
		"bartender_id", bartender.ID,
		"patron_id", patron.Spec.ID,
		"script", script.Key,
		"blocked", it.Blocked)

	s.publish(ctx, it.ID, append([]events.Event{{
		Type:          events.EventTypeInteractionStarted,
		InteractionID: it.ID.String(),
		Data: map[string]interface{}{
			"bartender_id": bartender.ID,
			"patron_id":    patron.Spec.ID,
			"blocked":      it.Blocked,
		},
	}}, s.toEvents(it.ID, rec)...))

	return it, nil
}

// Get returns an interaction by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*state.Interaction, error) {
	it, err := s.storage.LoadInteraction(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrInteractionNotFound
	}
	return it, nil
}

// End deletes an interaction. The transaction flag, if set, is kept
func (s *Service) End(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.storage.DeleteInteraction(ctx, id)
}

// Advance handles a click on the dialogue box
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (*state.Interaction, error) {
	return s.run(ctx, id, "", func(c *dialogue.Controller) error {
		return c.Advance()
	})
}

// Select handles the choice of an offered option
func (s *Service) Select(ctx context.Context, id uuid.UUID, option dialogue.OptionID) (*state.Interaction, error) {
	if option == "" {
		return nil, fmt.Errorf("%w: empty option", dialogue.ErrOptionNotOffered)
	}
	return s.run(ctx, id, option, func(c *dialogue.Controller) error {
		return c.Select(option)
	})
}

// Patron returns the patron's current state
func (s *Service) Patron(ctx context.Context, patronID string) (*actor.Patron, error) {
	return s.storage.LoadPatron(ctx, patronID)
}

func (s *Service) run(ctx context.Context, id uuid.UUID, option dialogue.OptionID, op func(*dialogue.Controller) error) (*state.Interaction, error) {
	owner := uuid.NewString()
	locked, err := s.storage.AcquireInteractionLock(ctx, id, owner, inputLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		s.logger.Warn("Interaction busy, rejecting input", "interaction_id", id)
		return nil, ErrInteractionBusy
	}
	defer func() {
		// Release with a fresh context so a cancelled request still unlocks
		_ = s.storage.ReleaseInteractionLock(context.WithoutCancel(ctx), id, owner)
	}()

	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bartender, err := s.storage.GetBartender(ctx, it.BartenderID)
	if err != nil {
		return nil, err
	}
	script, err := s.storage.GetScript(ctx, it.ScriptKey, it.Language)
	if err != nil {
		return nil, err
	}
	patron, err := s.storage.LoadPatron(ctx, it.PatronID)
	if err != nil {
		return nil, err
	}

	rec := &dialogue.Recorder{}
	fx := s.effects(patron, bartender)
	ctrl, err := dialogue.NewController(bartender.Content(script), &it.Dialogue, rec, fx)
	if err != nil {
		return nil, err
	}

	var label string
	if option != "" {
		for _, o := range it.Dialogue.Offered {
			if o.ID == option {
				label = o.Label
			}
		}
	}

	wasCompleted := it.Dialogue.Completed
	if err := op(ctrl); err != nil {
		if errors.Is(err, dialogue.ErrOptionNotOffered) || errors.Is(err, dialogue.ErrInteractionClosed) {
			metrics.ProtocolViolations.Inc()
			s.logger.Warn("Rejected interaction input", "interaction_id", id, "option", option, "error", err)
		}
		return nil, err
	}

	if option != "" {
		s.logger.Debug("Option selected", "interaction_id", id, "option", option)
		it.AddTranscript(state.SpeakerPatron, label)
	}
	s.record(it, rec)

	var changed *actor.Patron
	if len(fx.Applied) > 0 {
		changed = patron
	}
	completed := !wasCompleted && it.Dialogue.Completed

	it.UpdatedAt = time.Now()
	if err := s.storage.CommitTurn(ctx, it, changed, completed); err != nil {
		return nil, err
	}

	if option != "" {
		metrics.OptionsSelected.WithLabelValues(bartender.ID, metrics.OptionLabel(option)).Inc()
	}
	evs := s.toEvents(it.ID, rec)
	if completed {
		metrics.TransactionsCompleted.WithLabelValues(bartender.ID).Inc()
		s.logger.Info("Transaction completed", "interaction_id", id, "bartender_id", it.BartenderID, "patron_id", it.PatronID)
		evs = append(evs, events.Event{
			Type:          events.EventTypeTransactionCompleted,
			InteractionID: it.ID.String(),
			Data: map[string]interface{}{
				"bartender_id": it.BartenderID,
				"patron_id":    it.PatronID,
			},
		})
	}
	s.publish(ctx, it.ID, evs)
	return it, nil
}

func (s *Service) effects(p *actor.Patron, b *actor.BartenderSpec) *actor.PatronEffects {
	return &actor.PatronEffects{
		Patron:    p,
		Bartender: b,
		Logger:    s.logger,
	}
}

// record copies what the presenter saw onto the interaction
func (s *Service) record(it *state.Interaction, rec *dialogue.Recorder) {
	for _, c := range rec.Calls {
		if c.Kind == dialogue.PublishedLine {
			it.Line = c.Line
			it.AddTranscript(state.SpeakerBartender, c.Line)
		}
	}
}

func (s *Service) toEvents(id uuid.UUID, rec *dialogue.Recorder) []events.Event {
	evs := make([]events.Event, 0, len(rec.Calls))
	for _, c := range rec.Calls {
		evs = append(evs, events.FromPublished(id, c))
	}
	return evs
}

// publish is best effort; a dropped event never fails the input that caused it
func (s *Service) publish(ctx context.Context, id uuid.UUID, evs []events.Event) {
	for _, ev := range evs {
		if err := s.events.Publish(ctx, id, ev); err != nil {
			s.logger.Warn("Failed to publish interaction event", "interaction_id", id, "event_type", ev.Type, "error", err)
		}
	}
}
