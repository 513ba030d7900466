package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/store"
)

// StaleListingWarning is reported when a sale reached the ledger but the
// listing could not be stamped as sold.
const StaleListingWarning = "recorded as sold, but listing view may be stale"

type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// runSaga runs steps in order. When one fails, the steps that already
// completed are compensated in reverse order.
func (s *Service) runSaga(ctx context.Context, steps []sagaStep) error {
	for i, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}

		errs := []error{fmt.Errorf("%s: %w", step.name, err)}
		for j := i - 1; j >= 0; j-- {
			done := steps[j]
			if done.compensate == nil {
				continue
			}
			if cerr := done.compensate(ctx); cerr != nil {
				s.logger.Error("compensation failed", zap.String("step", done.name), zap.Error(cerr))
				errs = append(errs, fmt.Errorf("undo %s: %w", done.name, cerr))
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

// SellListing records a sale of the listing into the ledger and then marks
// the listing sold.
//
// The ledger steps form a saga: resolving or creating the destination
// path, then appending the record. A failure there undoes what was created
// and leaves both documents untouched.
//
// Stamping the listing is deliberately NOT compensated. Once the record
// is saved the ledger is the source of truth for the money made, so a
// failed listing save returns the result with Warning set and a nil
// error. Retrying the sale is safe: the record id encodes the listing, so
// the ledger step finds the existing record and only the stamp is redone.
func (s *Service) SellListing(ctx context.Context, listingID string, req domain.SaleRequest) (domain.SaleResult, error) {
	listing, err := s.listings.Sellable(listingID)
	if err != nil {
		return domain.SaleResult{}, err
	}
	if req.Price == nil {
		return domain.SaleResult{}, store.Invalid("sale price is required")
	}
	if *req.Price < 0 {
		return domain.SaleResult{}, store.Invalid("sale price must not be negative")
	}

	var result domain.SaleResult
	steps := []sagaStep{
		{
			name: "resolve sale path",
			run: func(ctx context.Context) error {
				ref, err := s.ledger.EnsurePath(ctx, req.Path)
				result.Path = ref
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.ledger.RemovePath(ctx, result.Path)
			},
		},
		{
			name: "record sale",
			run: func(ctx context.Context) error {
				price := *req.Price
				record, err := s.ledger.AddSoldRecord(ctx, result.Path.SubcategoryID, domain.SoldRecordInput{
					Label:    listing.Name,
					Price:    &price,
					PhotoRef: listing.PhotoRef,
					SourceID: listing.ID,
				})
				if errors.Is(err, store.ErrAlreadyRecorded) {
					s.logger.Info("sale already in ledger", zap.String("listing_id", listing.ID), zap.String("record_id", record.ID))
					err = nil
				}
				result.Record = record
				return err
			},
		},
	}
	if err := s.runSaga(ctx, steps); err != nil {
		return domain.SaleResult{}, err
	}

	sold, err := s.listings.MarkSold(ctx, listing.ID, *req.Price)
	if err != nil {
		s.logger.Warn("listing not marked sold after ledger write",
			zap.String("listing_id", listing.ID),
			zap.String("record_id", result.Record.ID),
			zap.Error(err),
		)
		result.Listing = listing
		result.Warning = StaleListingWarning
		return result, nil
	}
	result.Listing = sold
	s.logger.Info("listing sold",
		zap.String("listing_id", listing.ID),
		zap.String("record_id", result.Record.ID),
		zap.Float64("price", *req.Price),
	)
	return result, nil
}
