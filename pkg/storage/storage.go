package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
)

var (
	// ErrNotFound is returned when a bartender, patron or interaction does not exist
	ErrNotFound = errors.New("not found")
	// ErrScriptNotFound is a configuration error: a bartender names a script that is not available
	ErrScriptNotFound = errors.New("script not found")
)

// Storage defines a unified interface for all storage operations
// This interface combines interaction persistence (Redis) with content loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Interaction operations (Redis-backed)
	// LoadInteraction returns nil, nil if the interaction doesn't exist
	SaveInteraction(ctx context.Context, it *state.Interaction) error
	LoadInteraction(ctx context.Context, id uuid.UUID) (*state.Interaction, error)
	DeleteInteraction(ctx context.Context, id uuid.UUID) error

	// Input locks, one input per interaction at a time
	// AcquireInteractionLock returns false if another owner holds the lock
	AcquireInteractionLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error)
	ReleaseInteractionLock(ctx context.Context, id uuid.UUID, owner string) error

	// Patron runtime state (Redis-backed, seeded from content)
	// LoadPatron returns the saved patron if there is one, otherwise builds it from its spec
	LoadPatron(ctx context.Context, patronID string) (*actor.Patron, error)
	ListPatrons(ctx context.Context) ([]string, error)

	// Transaction flags (Redis-backed), one per patron and bartender
	IsTransactionPerformed(ctx context.Context, patronID, bartenderID string) (bool, error)

	// CommitTurn saves the result of one input atomically: the interaction,
	// the patron if non-nil, and the transaction flag if markTransaction is set.
	// Either all writes land or none do
	CommitTurn(ctx context.Context, it *state.Interaction, patron *actor.Patron, markTransaction bool) error

	// Content operations (filesystem-backed)
	GetBartender(ctx context.Context, bartenderID string) (*actor.BartenderSpec, error)
	ListBartenders(ctx context.Context) ([]string, error)
	// GetScript matches language against the available translations and falls back to the default
	GetScript(ctx context.Context, key, language string) (*dialogue.Script, error)
}
