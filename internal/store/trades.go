package store

import (
	"sort"
	"sync"

	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// TradeStore holds the CDS book
type TradeStore interface {
	Get(id string) (models.CdsTrade, error)
	All() []models.CdsTrade
	Save(trade models.CdsTrade) error
	Delete(id string) error
	Len() int
}

// InMemoryTradeStore implements an in-memory trade book
type InMemoryTradeStore struct {
	trades map[string]models.CdsTrade
	mu     sync.RWMutex
	log    *logger.Logger
}

// NewInMemoryTradeStore creates a new in-memory trade store
func NewInMemoryTradeStore() *InMemoryTradeStore {
	return &InMemoryTradeStore{
		trades: make(map[string]models.CdsTrade),
		log:    logger.GetLogger("store.trades"),
	}
}

// Get retrieves a trade by ID
func (s *InMemoryTradeStore) Get(id string) (models.CdsTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trade, exists := s.trades[id]
	if !exists {
		return models.CdsTrade{}, errors.NotFound("trade not found: " + id)
	}

	return trade, nil
}

// All returns every stored trade ordered by ID
func (s *InMemoryTradeStore) All() []models.CdsTrade {
	s.mu.RLock()
	trades := make([]models.CdsTrade, 0, len(s.trades))
	for _, t := range s.trades {
		trades = append(trades, t)
	}
	s.mu.RUnlock()

	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades
}

// Save saves or replaces a trade
func (s *InMemoryTradeStore) Save(trade models.CdsTrade) error {
	if trade.ID == "" {
		return errors.InvalidArgument("trade ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[trade.ID]; exists {
		s.log.Debugf("Replacing trade %s", trade.ID)
	}
	s.trades[trade.ID] = trade
	return nil
}

// Delete removes a trade by ID
func (s *InMemoryTradeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[id]; !exists {
		return errors.NotFound("trade not found: " + id)
	}

	delete(s.trades, id)
	return nil
}

// Len returns the number of trades
func (s *InMemoryTradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}
