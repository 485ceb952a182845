// internal/store/store.go
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// ErrNotFound is wrapped by UpdateRecordImage for an unknown id.
var ErrNotFound = fmt.Errorf("record not found")

// Record is a persisted wine together with its resolved image.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Producer  string    `json:"producer"`
	Vintage   *int      `json:"vintage"`
	Varietal  string    `json:"varietal"`
	Region    string    `json:"region"`
	Country   string    `json:"country"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordStore is the persistence collaborator. FindRecordByKey returns
// (nil, nil) when no record matches; matching ignores case and surrounding
// whitespace of name and producer.
type RecordStore interface {
	FindRecordByKey(ctx context.Context, name, producer string, vintage *int) (*Record, error)
	CreateRecord(ctx context.Context, record types.WineRecord) (*Record, error)
	UpdateRecordImage(ctx context.Context, id, url string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by cfg
func Open(ctx context.Context, cfg config.StoreConfig) (RecordStore, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite, config.DriverPostgres, config.DriverMySQL:
		s, err := NewSQLStore(ctx, cfg.Driver, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMongoDB:
		s, err := NewMongoStore(ctx, cfg.DSN, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Newf(errors.KindConfig, "open store", "unsupported store driver %q", cfg.Driver)
	}
}

// lookupKey normalizes the identity columns shared by every backend.
type lookupKey struct {
	Name     string
	Producer string
	Vintage  int
}

func keyOf(name, producer string, vintage *int) lookupKey {
	k := lookupKey{
		Name:     strings.ToLower(strings.Join(strings.Fields(name), " ")),
		Producer: strings.ToLower(strings.Join(strings.Fields(producer), " ")),
	}
	if vintage != nil {
		k.Vintage = *vintage
	}
	return k
}

func (k lookupKey) String() string {
	return k.Name + "|" + k.Producer + "|" + strconv.Itoa(k.Vintage)
}

func newRecord(rec types.WineRecord, now time.Time) *Record {
	r := &Record{
		ID:        uuid.NewString(),
		Name:      rec.Name,
		Producer:  rec.Producer,
		Vintage:   rec.Vintage,
		Varietal:  rec.Varietal,
		Region:    rec.Region,
		Country:   rec.Country,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.Image != nil {
		r.Image = *rec.Image
	}
	return r
}

// MemoryStore keeps records in process; the default when no driver is set.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]*Record
	byID  map[string]*Record
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: make(map[string]*Record),
		byID:  make(map[string]*Record),
		now:   time.Now,
	}
}

// FindRecordByKey returns a copy of the matching record or nil
func (m *MemoryStore) FindRecordByKey(ctx context.Context, name, producer string, vintage *int) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r, ok := m.byKey[keyOf(name, producer, vintage).String()]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

// CreateRecord stores a new record; an existing key is replaced
func (m *MemoryStore) CreateRecord(ctx context.Context, rec types.WineRecord) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := newRecord(rec, m.now())
	key := keyOf(rec.Name, rec.Producer, rec.Vintage).String()
	if old, ok := m.byKey[key]; ok {
		delete(m.byID, old.ID)
	}
	m.byKey[key] = r
	m.byID[r.ID] = r

	cp := *r
	return &cp, nil
}

// UpdateRecordImage sets the image of the record with id
func (m *MemoryStore) UpdateRecordImage(ctx context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return errors.New(errors.KindStorage, "update record image", ErrNotFound)
	}
	r.Image = url
	r.UpdatedAt = m.now()
	return nil
}

// Len returns the number of stored records
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }
