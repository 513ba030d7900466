package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrPossibleDuplicate  = errors.New("possible duplicate")
	ErrAlreadyRecorded    = errors.New("already recorded")
	ErrQuotaExceeded      = errors.New("local cache quota exceeded")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Backend is one storage tier holding raw JSON documents by key.
// Get reports found=false for a missing key without an error.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Documents is what the managers persist through.
type Documents interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, value any) error
}

type QuotaError struct {
	Key           string
	DocumentBytes int
	UsedBytes     int
	CapacityBytes int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s writing %q: document is %s, cache currently holds %s of %s",
		ErrQuotaExceeded.Error(),
		e.Key,
		humanize.Bytes(uint64(e.DocumentBytes)),
		humanize.Bytes(uint64(e.UsedBytes)),
		humanize.Bytes(uint64(e.CapacityBytes)),
	)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// CheckQuota returns a QuotaError when replacing the document under key
// (currently previousBytes long) would push usedBytes past capacity.
// A capacity of zero means unlimited.
func CheckQuota(key string, capacity int, usedBytes int, previousBytes int, payload []byte) error {
	if capacity <= 0 {
		return nil
	}
	if usedBytes-previousBytes+len(payload) > capacity {
		return &QuotaError{
			Key:           key,
			DocumentBytes: len(payload),
			UsedBytes:     usedBytes,
			CapacityBytes: capacity,
		}
	}
	return nil
}

type DuplicateError struct {
	ExistingID string
	Name       string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: an active listing named %q already exists (%s)", ErrPossibleDuplicate.Error(), e.Name, e.ExistingID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrPossibleDuplicate
}

// Invalid wraps ErrValidation with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Missing wraps ErrNotFound with the entity kind and id.
func Missing(kind string, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
