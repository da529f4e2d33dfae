// Package store provides an in-memory booking.Store implementation, the
// test substitute called for by the injected-store design: unit tests of
// the state machine can run against it without a database file.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	properties map[booking.PropertyID]booking.Property
	bookings   map[booking.BookingID]booking.Booking
}

func NewMemory() *Memory {
	return &Memory{
		properties: make(map[booking.PropertyID]booking.Property),
		bookings:   make(map[booking.BookingID]booking.Booking),
	}
}

func (m *Memory) CreateProperty(_ context.Context, p *booking.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPropertyLocked(p)
}

func (m *Memory) createPropertyLocked(p *booking.Property) error {
	if _, ok := m.properties[p.ID]; ok {
		return fmt.Errorf("property %s exists: %w", p.ID, booking.ErrConflict)
	}
	m.properties[p.ID] = *p
	return nil
}

func (m *Memory) GetProperty(_ context.Context, id booking.PropertyID) (*booking.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPropertyLocked(id)
}

func (m *Memory) getPropertyLocked(id booking.PropertyID) (*booking.Property, error) {
	p, ok := m.properties[id]
	if !ok {
		return nil, fmt.Errorf("property %s: %w", id, booking.ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) UpdateProperty(_ context.Context, p *booking.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePropertyLocked(p)
}

func (m *Memory) updatePropertyLocked(p *booking.Property) error {
	if _, ok := m.properties[p.ID]; !ok {
		return fmt.Errorf("property %s: %w", p.ID, booking.ErrNotFound)
	}
	m.properties[p.ID] = *p
	return nil
}

func (m *Memory) ListProperties(_ context.Context) ([]booking.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPropertiesLocked(), nil
}

func (m *Memory) listPropertiesLocked() []booking.Property {
	result := make([]booking.Property, 0, len(m.properties))
	for _, p := range m.properties {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func (m *Memory) CreateBooking(_ context.Context, b *booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBookingLocked(b)
}

func (m *Memory) createBookingLocked(b *booking.Booking) error {
	if _, ok := m.bookings[b.ID]; ok {
		return fmt.Errorf("booking %s exists: %w", b.ID, booking.ErrConflict)
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBookingLocked(id)
}

func (m *Memory) getBookingLocked(id booking.BookingID) (*booking.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, booking.ErrNotFound)
	}
	return &b, nil
}

func (m *Memory) UpdateBooking(_ context.Context, b *booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateBookingLocked(b)
}

func (m *Memory) updateBookingLocked(b *booking.Booking) error {
	if _, ok := m.bookings[b.ID]; !ok {
		return fmt.Errorf("booking %s: %w", b.ID, booking.ErrNotFound)
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *Memory) ListBookingsByProperty(_ context.Context, id booking.PropertyID) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBookingsByPropertyLocked(id), nil
}

func (m *Memory) listBookingsByPropertyLocked(id booking.PropertyID) []booking.Booking {
	var result []booking.Booking
	for _, b := range m.bookings {
		if b.PropertyID == id {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (m *Memory) FindConfirmedOverlap(_ context.Context, id booking.PropertyID, w booking.Window) (*booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findConfirmedOverlapLocked(id, w), nil
}

func (m *Memory) findConfirmedOverlapLocked(id booking.PropertyID, w booking.Window) *booking.Booking {
	for _, b := range m.bookings {
		if b.PropertyID == id && b.Status == booking.BookingConfirmed && b.Window().Overlaps(w) {
			found := b
			return &found
		}
	}
	return nil
}

func (m *Memory) ListPendingOverlapping(_ context.Context, id booking.PropertyID, w booking.Window) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPendingOverlappingLocked(id, w), nil
}

func (m *Memory) listPendingOverlappingLocked(id booking.PropertyID, w booking.Window) []booking.Booking {
	var result []booking.Booking
	for _, b := range m.bookings {
		if b.PropertyID == id && b.Status == booking.BookingPending && b.Window().Overlaps(w) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (m *Memory) ListExpiredConfirmed(_ context.Context, asOf time.Time) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listExpiredConfirmedLocked(asOf), nil
}

func (m *Memory) listExpiredConfirmedLocked(asOf time.Time) []booking.Booking {
	var result []booking.Booking
	for _, b := range m.bookings {
		if b.Status == booking.BookingConfirmed && b.EndDate.Before(asOf) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EndDate.Before(result[j].EndDate) })
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// WithTx simulates a transaction with a snapshot + rollback on error.
// The whole store is locked for the duration, which matches the sqlite
// implementation's serialized write transactions.
func (m *Memory) WithTx(ctx context.Context, fn func(booking.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()

	if err := fn(&txView{parent: m}); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	properties map[booking.PropertyID]booking.Property
	bookings   map[booking.BookingID]booking.Booking
}

func (m *Memory) snapshotLocked() memorySnapshot {
	props := make(map[booking.PropertyID]booking.Property, len(m.properties))
	for k, v := range m.properties {
		props[k] = v
	}
	books := make(map[booking.BookingID]booking.Booking, len(m.bookings))
	for k, v := range m.bookings {
		books[k] = v
	}
	return memorySnapshot{properties: props, bookings: books}
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.properties = s.properties
	m.bookings = s.bookings
}

// txView routes through the locked helpers: the parent mutex is already
// held by WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateProperty(_ context.Context, p *booking.Property) error {
	return tv.parent.createPropertyLocked(p)
}

func (tv *txView) GetProperty(_ context.Context, id booking.PropertyID) (*booking.Property, error) {
	return tv.parent.getPropertyLocked(id)
}

func (tv *txView) UpdateProperty(_ context.Context, p *booking.Property) error {
	return tv.parent.updatePropertyLocked(p)
}

func (tv *txView) ListProperties(_ context.Context) ([]booking.Property, error) {
	return tv.parent.listPropertiesLocked(), nil
}

func (tv *txView) CreateBooking(_ context.Context, b *booking.Booking) error {
	return tv.parent.createBookingLocked(b)
}

func (tv *txView) GetBooking(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	return tv.parent.getBookingLocked(id)
}

func (tv *txView) UpdateBooking(_ context.Context, b *booking.Booking) error {
	return tv.parent.updateBookingLocked(b)
}

func (tv *txView) ListBookingsByProperty(_ context.Context, id booking.PropertyID) ([]booking.Booking, error) {
	return tv.parent.listBookingsByPropertyLocked(id), nil
}

func (tv *txView) FindConfirmedOverlap(_ context.Context, id booking.PropertyID, w booking.Window) (*booking.Booking, error) {
	return tv.parent.findConfirmedOverlapLocked(id, w), nil
}

func (tv *txView) ListPendingOverlapping(_ context.Context, id booking.PropertyID, w booking.Window) ([]booking.Booking, error) {
	return tv.parent.listPendingOverlappingLocked(id, w), nil
}

func (tv *txView) ListExpiredConfirmed(_ context.Context, asOf time.Time) ([]booking.Booking, error) {
	return tv.parent.listExpiredConfirmedLocked(asOf), nil
}
