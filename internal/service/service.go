package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/ledger"
	"resaletracker/backend/internal/lifecycle"
	"resaletracker/backend/internal/recommendation"
	"resaletracker/backend/internal/registry"
)

// Service ties the store registry to the active store's listings and
// ledger. Callers serialize operations per store.
type Service struct {
	storage          registry.Storage
	registry         *registry.Registry
	recommender      *recommendation.Engine
	defaultStoreName string
	logger           *zap.Logger
	now              func() time.Time

	listings *lifecycle.Manager
	ledger   *ledger.Ledger
}

func New(storage registry.Storage, recommender *recommendation.Engine, defaultStoreName string, logger *zap.Logger) *Service {
	if defaultStoreName == "" {
		defaultStoreName = "My Store"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		storage:          storage,
		registry:         registry.New(storage, logger.Named("registry")),
		recommender:      recommender,
		defaultStoreName: defaultStoreName,
		logger:           logger,
	}
}

// SetClock overrides the time source of both managers, now and after
// every store switch.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.applyClock()
}

func (s *Service) applyClock() {
	if s.now == nil {
		return
	}
	if s.listings != nil {
		s.listings.SetClock(s.now)
	}
	if s.ledger != nil {
		s.ledger.SetClock(s.now)
	}
}

// Open loads the registry, migrates store identifiers, makes sure a store
// exists and loads its documents. It runs once at startup.
func (s *Service) Open(ctx context.Context) (registry.MigrationReport, error) {
	if err := s.registry.Load(ctx); err != nil {
		return registry.MigrationReport{}, fmt.Errorf("load registry: %w", err)
	}
	report, err := s.registry.MigrateIdentifiers(ctx)
	if err != nil {
		return report, fmt.Errorf("migrate store identifiers: %w", err)
	}
	if _, err := s.registry.EnsureDefault(ctx, s.defaultStoreName); err != nil {
		return report, fmt.Errorf("ensure default store: %w", err)
	}
	if err := s.loadCurrent(ctx); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Service) loadCurrent(ctx context.Context) error {
	listings := lifecycle.New(s.storage, s.registry.Key(registry.KindListings), s.recommender, s.logger.Named("lifecycle"))
	if err := listings.Load(ctx); err != nil {
		return fmt.Errorf("load listings: %w", err)
	}
	book := ledger.New(s.storage, s.registry.Key(registry.KindLedger), s.logger.Named("ledger"))
	if err := book.Load(ctx); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.listings = listings
	s.ledger = book
	s.applyClock()

	current, _ := s.registry.Current()
	s.logger.Info("store loaded", zap.String("store_id", current.ID), zap.String("name", current.Name))
	return nil
}

// Listings is the lifecycle manager of the current store.
func (s *Service) Listings() *lifecycle.Manager {
	return s.listings
}

// Ledger is the sold ledger of the current store.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Service) Stores() []domain.Store {
	return s.registry.List()
}

func (s *Service) CurrentStore() (domain.Store, bool) {
	return s.registry.Current()
}

func (s *Service) CreateStore(ctx context.Context, name string) (domain.Store, error) {
	return s.registry.Create(ctx, name)
}

// SwitchStore makes id current and loads its documents. If loading fails
// the previous store stays current.
func (s *Service) SwitchStore(ctx context.Context, id string) (domain.Store, error) {
	previous, _ := s.registry.Current()
	if err := s.registry.Switch(ctx, id); err != nil {
		return domain.Store{}, err
	}
	if err := s.loadCurrent(ctx); err != nil {
		if previous.ID != "" && previous.ID != id {
			if restoreErr := s.registry.Switch(ctx, previous.ID); restoreErr != nil {
				s.logger.Error("restore previous store failed", zap.String("store_id", previous.ID), zap.Error(restoreErr))
			}
		}
		return domain.Store{}, err
	}
	current, _ := s.registry.Current()
	return current, nil
}

// RemoveStore drops a store from the registry, reloading documents when
// the current store changed as a result.
func (s *Service) RemoveStore(ctx context.Context, id string) error {
	previous, _ := s.registry.Current()
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	if current, _ := s.registry.Current(); current.ID != previous.ID {
		return s.loadCurrent(ctx)
	}
	return nil
}
