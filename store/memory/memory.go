// Package memory provides in-memory repository implementations for
// testing and development, mirroring the SQLite store's behavior.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// MEMORY STORE - Implements every pipeline repository interface
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	cards     map[string]*segment.TimeCard
	clocks    map[string][]*segment.TimeSegment // by card id
	contracts map[string]*contract.Contract
	rules     map[string][]contract.ContractRule // by contract id, declaration order
	lines     map[string][]pipeline.Line         // by card id
	runs      []pipeline.Run
}

func New() *Store {
	return &Store{
		cards:     make(map[string]*segment.TimeCard),
		clocks:    make(map[string][]*segment.TimeSegment),
		contracts: make(map[string]*contract.Contract),
		rules:     make(map[string][]contract.ContractRule),
		lines:     make(map[string][]pipeline.Line),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (s *Store) AddCard(card *segment.TimeCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *card
	s.cards[card.ID] = &c
}

func (s *Store) AddClockSegment(seg *segment.TimeSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clocks[seg.TimeCardID] = append(s.clocks[seg.TimeCardID], seg.Clone())
}

func (s *Store) AddContract(c *contract.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := *c
	s.contracts[c.ID] = &cc
}

func (s *Store) AddRule(r contract.ContractRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ContractID] = append(s.rules[r.ContractID], r)
}

// =============================================================================
// CARD REPOSITORY
// =============================================================================

func (s *Store) Card(_ context.Context, id string) (*segment.TimeCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("time card %s not found", id)
	}
	c := *card
	return &c, nil
}

func (s *Store) ClockSegments(_ context.Context, timeCardID string) ([]*segment.TimeSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*segment.TimeSegment
	for _, c := range s.clocks[timeCardID] {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InAt.Before(out[j].InAt) })
	return out, nil
}

func (s *Store) StampRun(_ context.Context, timeCardID string, at time.Time, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[timeCardID]
	if !ok {
		return fmt.Errorf("time card %s not found", timeCardID)
	}
	stamped := at
	card.LastRunAt = &stamped
	card.LastError = runErr
	return nil
}

// =============================================================================
// CONTRACT REPOSITORY
// =============================================================================

func (s *Store) Contract(_ context.Context, id string) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("contract %s not found", id)
	}
	cc := *c
	return &cc, nil
}

func (s *Store) Rules(_ context.Context, contractID string) (contract.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contract.NewRuleSet(s.rules[contractID]...), nil
}

// =============================================================================
// HISTORY REPOSITORY
// =============================================================================

// Before returns the worker's persisted derived segments from cards dated
// strictly before day, ascending by InAt.
func (s *Store) Before(_ context.Context, workerID string, day time.Time) ([]*segment.TimeSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := segment.Day(day)
	var out []*segment.TimeSegment
	for cardID, lines := range s.lines {
		card, ok := s.cards[cardID]
		if !ok || card.WorkerID != workerID || !segment.Day(card.Date).Before(cutoff) {
			continue
		}
		for _, l := range lines {
			out = append(out, segmentFromLine(card, l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InAt.Before(out[j].InAt) })
	return out, nil
}

func segmentFromLine(card *segment.TimeCard, l pipeline.Line) *segment.TimeSegment {
	return &segment.TimeSegment{
		ID:              l.ID,
		TimeCardID:      l.TimeCardID,
		WorkerID:        card.WorkerID,
		Date:            l.Date,
		In:              l.In,
		Out:             l.Out,
		InAt:            l.InAt,
		OutAt:           l.OutAt,
		Role:            l.Role,
		Mode:            l.Mode,
		SourceSegmentID: l.SourceSegmentID,
		Flags:           l.Flags,
		CreditedHours:   l.CreditedHours,
		Note:            l.Note,
	}
}

// =============================================================================
// LINE REPOSITORY
// =============================================================================

func (s *Store) DerivedLines(_ context.Context, timeCardID string) ([]pipeline.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]pipeline.Line(nil), s.lines[timeCardID]...), nil
}

// ReplaceDerived swaps the card's derived lines atomically. Ids are
// whatever the reconciler assigned; anything previously stored and not in
// the new set is gone, matching the SQLite store's delete-of-leftovers.
func (s *Store) ReplaceDerived(_ context.Context, timeCardID string, lines []pipeline.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[timeCardID] = append([]pipeline.Line(nil), lines...)
	return nil
}

// =============================================================================
// RUN REPOSITORY
// =============================================================================

func (s *Store) SaveRun(_ context.Context, run pipeline.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) Runs() []pipeline.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]pipeline.Run(nil), s.runs...)
}
