// Package registry resolves the active store (tenant) and derives the
// per-store document keys every other component persists under.
package registry

import (
	"context"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
)

const (
	StoresKey       = "stores"
	CurrentStoreKey = "currentStore"

	KindListings = "listings"
	KindLedger   = "ledger"
)

// DocumentKinds lists every per-store document.
var DocumentKinds = []string{KindListings, KindLedger}

// Storage is the persistence the registry needs; migration copies
// documents tier by tier.
type Storage interface {
	store.Documents
	CopyIfAbsent(ctx context.Context, fromKey string, toKey string) (bool, error)
}

type Registry struct {
	storage Storage
	logger  *zap.Logger
	stores  []domain.Store
	current string
}

func New(storage Storage, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{storage: storage, logger: logger}
}

// HashID derives the deterministic store id for a name.
func HashID(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	sum := blake2b.Sum256([]byte(normalized))
	return "store-" + hex.EncodeToString(sum[:])[:12]
}

func KeyFor(kind string, storeID string) string {
	return kind + "_" + storeID
}

func (r *Registry) Load(ctx context.Context) error {
	var stores []domain.Store
	if _, err := r.storage.Load(ctx, StoresKey, &stores); err != nil {
		return err
	}
	var current string
	if _, err := r.storage.Load(ctx, CurrentStoreKey, &current); err != nil {
		return err
	}
	r.stores = stores
	r.current = current
	return nil
}

func (r *Registry) List() []domain.Store {
	return append([]domain.Store(nil), r.stores...)
}

func (r *Registry) Current() (domain.Store, bool) {
	for _, s := range r.stores {
		if s.ID == r.current {
			return s, true
		}
	}
	return domain.Store{}, false
}

// Key is the document key of kind for the current store.
func (r *Registry) Key(kind string) string {
	return KeyFor(kind, r.current)
}

// EnsureDefault creates a store named name when none exist and repairs a
// stale current-store pointer.
func (r *Registry) EnsureDefault(ctx context.Context, name string) (domain.Store, error) {
	if len(r.stores) == 0 {
		return r.Create(ctx, name)
	}
	if current, ok := r.Current(); ok {
		return current, nil
	}
	if err := r.Switch(ctx, r.stores[0].ID); err != nil {
		return domain.Store{}, err
	}
	return r.stores[0], nil
}

func (r *Registry) Create(ctx context.Context, name string) (domain.Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Store{}, store.Invalid("store name is required")
	}
	id := HashID(name)
	if r.indexOf(id) >= 0 {
		return domain.Store{}, store.Invalid("store %q already exists", name)
	}

	created := domain.Store{ID: id, Name: name}
	prevStores, prevCurrent := r.stores, r.current
	r.stores = append(append([]domain.Store(nil), r.stores...), created)
	if r.current == "" || r.indexOf(r.current) < 0 {
		r.current = id
	}

	if err := r.persist(ctx, prevCurrent != r.current); err != nil {
		r.stores, r.current = prevStores, prevCurrent
		return domain.Store{}, err
	}
	r.logger.Info("store created", zap.String("store_id", id), zap.String("name", name))
	return created, nil
}

func (r *Registry) Switch(ctx context.Context, id string) error {
	if r.indexOf(id) < 0 {
		return store.Missing("store", id)
	}
	if r.current == id {
		return nil
	}
	prev := r.current
	r.current = id
	if err := r.storage.Save(ctx, CurrentStoreKey, r.current); err != nil {
		r.current = prev
		return err
	}
	return nil
}

// Remove drops a store from the registry. Its documents are left in place.
func (r *Registry) Remove(ctx context.Context, id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return store.Missing("store", id)
	}
	if len(r.stores) == 1 {
		return store.Invalid("cannot remove the last store")
	}

	prevStores, prevCurrent := r.stores, r.current
	next := make([]domain.Store, 0, len(r.stores)-1)
	next = append(next, r.stores[:idx]...)
	next = append(next, r.stores[idx+1:]...)
	r.stores = next
	if r.current == id {
		r.current = next[0].ID
	}

	if err := r.persist(ctx, prevCurrent != r.current); err != nil {
		r.stores, r.current = prevStores, prevCurrent
		return err
	}
	return nil
}

func (r *Registry) indexOf(id string) int {
	for i, s := range r.stores {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) persist(ctx context.Context, withCurrent bool) error {
	if err := r.storage.Save(ctx, StoresKey, r.stores); err != nil {
		return err
	}
	if withCurrent {
		return r.storage.Save(ctx, CurrentStoreKey, r.current)
	}
	return nil
}
