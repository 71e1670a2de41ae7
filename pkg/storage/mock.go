package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	mu           sync.RWMutex
	interactions map[uuid.UUID][]byte
	patrons      map[string][]byte
	patronSpecs  map[string]*actor.PatronSpec
	bartenders   map[string]*actor.BartenderSpec
	scripts      map[string]*dialogue.Script
	transactions map[string]bool
	locks        map[uuid.UUID]string
	pingError    error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		interactions: make(map[uuid.UUID][]byte),
		patrons:      make(map[string][]byte),
		patronSpecs:  make(map[string]*actor.PatronSpec),
		bartenders:   make(map[string]*actor.BartenderSpec),
		scripts:      make(map[string]*dialogue.Script),
		transactions: make(map[string]bool),
		locks:        make(map[uuid.UUID]string),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveInteraction stores a copy so callers can't mutate saved state behind our back
func (m *MockStorage) SaveInteraction(ctx context.Context, it *state.Interaction) error {
	if it == nil {
		return errors.New("interaction cannot be nil")
	}
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[it.ID] = data
	return nil
}

func (m *MockStorage) LoadInteraction(ctx context.Context, id uuid.UUID) (*state.Interaction, error) {
	m.mu.RLock()
	data, exists := m.interactions[id]
	m.mu.RUnlock()
	if !exists {
		return nil, nil
	}
	var it state.Interaction
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal interaction: %w", err)
	}
	return &it, nil
}

func (m *MockStorage) DeleteInteraction(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.interactions, id)
	return nil
}

// AcquireInteractionLock ignores ttl; mock locks never expire
func (m *MockStorage) AcquireInteractionLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return false, nil
	}
	m.locks[id] = owner
	return true, nil
}

func (m *MockStorage) ReleaseInteractionLock(ctx context.Context, id uuid.UUID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == owner {
		delete(m.locks, id)
	}
	return nil
}

func (m *MockStorage) LoadPatron(ctx context.Context, patronID string) (*actor.Patron, error) {
	m.mu.RLock()
	data, saved := m.patrons[patronID]
	spec, exists := m.patronSpecs[patronID]
	m.mu.RUnlock()

	if saved {
		var p actor.Patron
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
	if !exists {
		return nil, fmt.Errorf("patron %q: %w", patronID, ErrNotFound)
	}
	specCopy := *spec
	return actor.NewPatronFromSpec(&specCopy)
}

func (m *MockStorage) ListPatrons(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.patronSpecs))
	for id := range m.patronSpecs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// AddPatronSpec adds a patron spec to the mock storage (for testing)
func (m *MockStorage) AddPatronSpec(spec *actor.PatronSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patronSpecs[spec.ID] = spec
}

func (m *MockStorage) IsTransactionPerformed(ctx context.Context, patronID, bartenderID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[patronID+":"+bartenderID], nil
}

// CommitTurn marshals everything before taking the lock so a bad value
// leaves the mock untouched
func (m *MockStorage) CommitTurn(ctx context.Context, it *state.Interaction, patron *actor.Patron, markTransaction bool) error {
	if it == nil {
		return errors.New("interaction cannot be nil")
	}
	itData, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}
	var patronData []byte
	if patron != nil {
		if patronData, err = json.Marshal(patron); err != nil {
			return fmt.Errorf("failed to marshal patron: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[it.ID] = itData
	if patron != nil {
		m.patrons[patron.Spec.ID] = patronData
	}
	if markTransaction {
		m.transactions[it.PatronID+":"+it.BartenderID] = true
	}
	return nil
}

func (m *MockStorage) GetBartender(ctx context.Context, bartenderID string) (*actor.BartenderSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, exists := m.bartenders[bartenderID]
	if !exists {
		return nil, fmt.Errorf("bartender %q: %w", bartenderID, ErrNotFound)
	}
	return b, nil
}

func (m *MockStorage) ListBartenders(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.bartenders))
	for id := range m.bartenders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// AddBartender adds a bartender to the mock storage (for testing)
func (m *MockStorage) AddBartender(b *actor.BartenderSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bartenders[b.ID] = b
}

// GetScript ignores language; the mock holds one translation per key
func (m *MockStorage) GetScript(ctx context.Context, key, language string) (*dialogue.Script, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.scripts[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, key)
	}
	return s, nil
}

// AddScript adds a script to the mock storage (for testing)
func (m *MockStorage) AddScript(s *dialogue.Script) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[s.Key] = s
}
