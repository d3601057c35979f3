package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

// MemoryStore is an in-memory Store used by tests. SetAvailable(false) makes
// every call fail with ErrRemoteUnavailable, simulating lost connectivity.
type MemoryStore struct {
	mu        sync.RWMutex
	available bool
	zones     map[string]struct{}
	records   map[string]map[string]Record // zone -> record id -> record
	shares    map[string]map[string]Share  // zone -> share id -> share

	// SaveCount counts successful SaveRecord calls, for asserting
	// incremental-push behavior.
	SaveCount int
}

// NewMemoryStore creates an empty, reachable in-memory remote store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		available: true,
		zones:     make(map[string]struct{}),
		records:   make(map[string]map[string]Record),
		shares:    make(map[string]map[string]Share),
	}
}

// SetAvailable toggles simulated connectivity.
func (s *MemoryStore) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

func (s *MemoryStore) checkAvailable() error {
	if !s.available {
		return fmt.Errorf("%w: simulated outage", apperrors.ErrRemoteUnavailable)
	}
	return nil
}

// EnsureZone creates the zone if absent
func (s *MemoryStore) EnsureZone(_ context.Context, zone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable(); err != nil {
		return err
	}
	s.zones[zone] = struct{}{}
	return nil
}

// SaveRecord upserts a record
func (s *MemoryStore) SaveRecord(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable(); err != nil {
		return err
	}
	if _, ok := s.records[record.Zone]; !ok {
		s.records[record.Zone] = make(map[string]Record)
	}
	stored := *record
	stored.Fields = make(map[string]string, len(record.Fields))
	for k, v := range record.Fields {
		stored.Fields[k] = v
	}
	s.records[record.Zone][record.ID] = stored
	s.SaveCount++
	return nil
}

// FetchRecord retrieves one record
func (s *MemoryStore) FetchRecord(_ context.Context, zone, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}
	record, ok := s.records[zone][id]
	if !ok {
		return nil, apperrors.ErrRemoteNotFound
	}
	copy := record
	copy.Fields = make(map[string]string, len(record.Fields))
	for k, v := range record.Fields {
		copy.Fields[k] = v
	}
	return &copy, nil
}

// DeleteRecord removes one record
func (s *MemoryStore) DeleteRecord(_ context.Context, zone, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable(); err != nil {
		return err
	}
	delete(s.records[zone], id)
	return nil
}

// CreateShare creates a share rooted at the given record
func (s *MemoryStore) CreateShare(_ context.Context, zone, rootRecordID string) (*Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}
	share := Share{
		ID:           uuid.New().String(),
		Zone:         zone,
		RootRecordID: rootRecordID,
		URL:          fmt.Sprintf("rightrudder://share/%s/%s", zone, rootRecordID),
		CreatedAt:    time.Now(),
	}
	if _, ok := s.shares[zone]; !ok {
		s.shares[zone] = make(map[string]Share)
	}
	s.shares[zone][share.ID] = share
	copy := share
	return &copy, nil
}

// FetchShare retrieves one share
func (s *MemoryStore) FetchShare(_ context.Context, zone, shareID string) (*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}
	share, ok := s.shares[zone][shareID]
	if !ok {
		return nil, apperrors.ErrRemoteNotFound
	}
	copy := share
	return &copy, nil
}

// DeleteShare revokes a share
func (s *MemoryStore) DeleteShare(_ context.Context, zone, shareID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAvailable(); err != nil {
		return err
	}
	delete(s.shares[zone], shareID)
	return nil
}

// Ping reports simulated reachability
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkAvailable()
}
