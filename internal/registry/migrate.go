package registry

import (
	"context"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
)

type IDChange struct {
	Name   string   `json:"name"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Copied []string `json:"copied"`
}

type MigrationReport struct {
	Changes []IDChange `json:"changes"`
}

// MigrateIdentifiers moves every store whose id is not HashID(name) onto
// its hashed id. Documents are copied to the new keys only where the new
// key is still absent, so data already written under a new id wins. A
// second run finds nothing to do.
func (r *Registry) MigrateIdentifiers(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport
	prevStores, prevCurrent := r.stores, r.current
	migrated := append([]domain.Store(nil), r.stores...)
	current := r.current

	for i, s := range migrated {
		expected := HashID(s.Name)
		if s.ID == expected {
			continue
		}

		change := IDChange{Name: s.Name, From: s.ID, To: expected}
		for _, kind := range DocumentKinds {
			copied, err := r.storage.CopyIfAbsent(ctx, KeyFor(kind, s.ID), KeyFor(kind, expected))
			if err != nil {
				return MigrationReport{}, err
			}
			if copied {
				change.Copied = append(change.Copied, kind)
			}
		}
		if current == s.ID {
			current = expected
		}
		migrated[i].ID = expected
		report.Changes = append(report.Changes, change)
	}

	if len(report.Changes) == 0 {
		return report, nil
	}

	// two legacy stores with the same name collapse onto one hashed id
	seen := make(map[string]struct{}, len(migrated))
	deduped := migrated[:0]
	for _, s := range migrated {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		deduped = append(deduped, s)
	}

	r.stores, r.current = deduped, current
	if err := r.persist(ctx, true); err != nil {
		r.stores, r.current = prevStores, prevCurrent
		return MigrationReport{}, err
	}

	for _, change := range report.Changes {
		r.logger.Info("store id migrated",
			zap.String("name", change.Name),
			zap.String("from", change.From),
			zap.String("to", change.To),
			zap.Strings("copied", change.Copied),
		)
	}
	return report, nil
}
