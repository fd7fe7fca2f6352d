package usecases_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// --- Mock Geocoder ---

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, address string) (domain.GeoPoint, error)
	calls     atomic.Int32
}

func (m *mockGeocoder) Geocode(ctx context.Context, address string) (domain.GeoPoint, error) {
	m.calls.Add(1)
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, address)
	}
	return domain.GeoPoint{}, domain.ErrNotFound
}

// geocoderFromTable answers from a fixed address table; unknown addresses are not found.
func geocoderFromTable(table map[string]domain.GeoPoint) *mockGeocoder {
	return &mockGeocoder{
		geocodeFn: func(ctx context.Context, address string) (domain.GeoPoint, error) {
			if pt, ok := table[address]; ok {
				return pt, nil
			}
			return domain.GeoPoint{}, domain.ErrNotFound
		},
	}
}

// --- Mock RestroomRepository ---

type mockRestroomRepo struct {
	listFn        func(ctx context.Context) ([]domain.RestroomRecord, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.RestroomRecord, error)
	createFn      func(ctx context.Context, r *domain.RestroomRecord) error
	setPhotoKeyFn func(ctx context.Context, id, key string) error
}

func (m *mockRestroomRepo) List(ctx context.Context) ([]domain.RestroomRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRestroomRepo) GetByID(ctx context.Context, id string) (*domain.RestroomRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRestroomRepo) Create(ctx context.Context, r *domain.RestroomRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	r.ID = "generated"
	r.CreatedAt = time.Now()
	return nil
}

func (m *mockRestroomRepo) SetPhotoKey(ctx context.Context, id, key string) error {
	if m.setPhotoKeyFn != nil {
		return m.setPhotoKeyFn(ctx, id, key)
	}
	return nil
}

// --- Mock LocationProvider ---

type mockProvider struct {
	permissionFn func(ctx context.Context) (domain.PermissionStatus, error)
	positionFn   func(ctx context.Context) (domain.LiveLocation, error)
	asked        atomic.Int32
}

func (m *mockProvider) RequestPermission(ctx context.Context) (domain.PermissionStatus, error) {
	m.asked.Add(1)
	if m.permissionFn != nil {
		return m.permissionFn(ctx)
	}
	return domain.PermissionDenied, nil
}

func (m *mockProvider) CurrentPosition(ctx context.Context) (domain.LiveLocation, error) {
	if m.positionFn != nil {
		return m.positionFn(ctx)
	}
	return domain.LiveLocation{}, context.DeadlineExceeded
}

func grantingProvider(loc domain.LiveLocation) *mockProvider {
	return &mockProvider{
		permissionFn: func(ctx context.Context) (domain.PermissionStatus, error) { return domain.PermissionGranted, nil },
		positionFn:   func(ctx context.Context) (domain.LiveLocation, error) { return loc, nil },
	}
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu      sync.Mutex
	created []domain.RestroomCreated
	err     error
}

func (m *mockPublisher) PublishRestroomCreated(ctx context.Context, ev *domain.RestroomCreated) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, *ev)
	return m.err
}

func (m *mockPublisher) PublishRestroomGeocoded(ctx context.Context, ev *domain.RestroomGeocoded) error {
	return nil
}

// --- Mock PhotoStore ---

type mockPhotoStore struct {
	putFn func(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

func (m *mockPhotoStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, r, size, contentType)
	}
	return nil
}

func (m *mockPhotoStore) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://photos.example/" + key, nil
}

// --- Mock RegionLocator ---

type mockLocator struct {
	points map[string]domain.GeoPoint
}

func (m *mockLocator) Locate(ip string) (domain.GeoPoint, bool) {
	pt, ok := m.points[ip]
	return pt, ok
}

// --- Helpers ---

var (
	nyc          = domain.GeoPoint{Lat: 40.7128, Lon: -74.006}
	empireState  = domain.GeoPoint{Lat: 40.7484, Lon: -73.9857}
	timesSquare  = domain.GeoPoint{Lat: 40.7580, Lon: -73.9855}
	defaultRange = domain.RegionAround(nyc, 0.5)
)

// waitFor polls cond until it holds or a second passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
