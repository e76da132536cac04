package geo

import (
	"context"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. Readers may run while writers upsert.
type MemoryStore struct {
	mu   sync.RWMutex
	locs map[uuid.UUID]models.DriverLocation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locs: make(map[uuid.UUID]models.DriverLocation)}
}

func (m *MemoryStore) Set(_ context.Context, id uuid.UUID, lat, lng float64, at time.Time) error {
	m.mu.Lock()
	m.locs[id] = models.DriverLocation{DriverID: id, Latitude: lat, Longitude: lng, UpdatedAt: at}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.locs, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Within(_ context.Context, lat, lng, radiusKm float64) ([]models.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DriverLocation, 0)
	for _, l := range m.locs {
		if HaversineDistance(lat, lng, l.Latitude, l.Longitude) <= radiusKm {
			out = append(out, l)
		}
	}
	return out, nil
}

// Get returns the stored location of id.
func (m *MemoryStore) Get(id uuid.UUID) (models.DriverLocation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locs[id]
	return l, ok
}
