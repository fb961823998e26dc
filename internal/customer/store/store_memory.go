package store

import (
	"context"
	"fmt"
	"sync"

	"onboarding/internal/customer/models"
	id "onboarding/pkg/domain"
	"onboarding/pkg/platform/sentinel"
)

// InMemoryStore keeps customers in process for tests and dev. Email
// (case-insensitive) and document number are unique, as in the database schema.
type InMemoryStore struct {
	mu         sync.RWMutex
	customers  map[id.CustomerID]*models.Customer
	byEmail    map[string]id.CustomerID
	byDocument map[string]id.CustomerID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		customers:  make(map[id.CustomerID]*models.Customer),
		byEmail:    make(map[string]id.CustomerID),
		byDocument: make(map[string]id.CustomerID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := customer.NormalizedEmail()
	if _, exists := s.customers[customer.ID]; exists {
		return fmt.Errorf("customer %s already exists: %w", customer.ID, sentinel.ErrConflict)
	}
	if _, taken := s.byEmail[email]; taken {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	if _, taken := s.byDocument[customer.DocumentNumber]; taken {
		return fmt.Errorf("document number already registered: %w", sentinel.ErrConflict)
	}

	c := clone(customer)
	s.customers[c.ID] = c
	s.byEmail[email] = c.ID
	s.byDocument[c.DocumentNumber] = c.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, customerID id.CustomerID) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, fmt.Errorf("customer not found: %w", sentinel.ErrNotFound)
	}
	return clone(c), nil
}

// RecordScreening stores the screening result and the resulting status.
func (s *InMemoryStore) RecordScreening(_ context.Context, customerID id.CustomerID, status models.Status, screening models.Screening) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return fmt.Errorf("customer not found: %w", sentinel.ErrNotFound)
	}
	c.Status = status
	c.Screening = &screening
	return nil
}

func clone(c *models.Customer) *models.Customer {
	cp := *c
	cp.DocumentImageKeys = append([]string(nil), c.DocumentImageKeys...)
	if c.Screening != nil {
		screening := *c.Screening
		cp.Screening = &screening
	}
	return &cp
}

func (s *InMemoryStore) ExistsByDocumentNumber(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byDocument[number]
	return ok, nil
}

// Count reports how many customers exist.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers)
}
