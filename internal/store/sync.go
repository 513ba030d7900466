package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultRemoteTimeout = 5 * time.Second

type Status struct {
	Local             string     `json:"local"`
	Remote            string     `json:"remote,omitempty"`
	RemoteConfigured  bool       `json:"remote_configured"`
	RemoteHealthy     bool       `json:"remote_healthy"`
	LastRemoteError   string     `json:"last_remote_error,omitempty"`
	LastRemoteErrorAt *time.Time `json:"last_remote_error_at,omitempty"`
}

// Synchronizer reads and writes documents through an optional remote
// backend first and the local cache second. A remote timeout is treated
// exactly like an unreachable remote.
type Synchronizer struct {
	local   Backend
	remote  Backend
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	status Status
}

func NewSynchronizer(local Backend, remote Backend, timeout time.Duration, logger *zap.Logger) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{
		local:   local,
		remote:  remote,
		timeout: timeout,
		logger:  logger,
	}
	s.status.Local = local.Name()
	if remote != nil {
		s.status.Remote = remote.Name()
		s.status.RemoteConfigured = true
		s.status.RemoteHealthy = true
	}
	return s
}

func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Synchronizer) Close() error {
	var errs []error
	if s.remote != nil {
		errs = append(errs, s.remote.Close())
	}
	errs = append(errs, s.local.Close())
	return errors.Join(errs...)
}

func (s *Synchronizer) Load(ctx context.Context, key string, dst any) (bool, error) {
	if s.remote != nil {
		payload, found, err := s.remoteGet(ctx, key)
		if err == nil && found {
			if putErr := s.local.Put(ctx, key, payload); putErr != nil {
				s.logger.Warn("mirror remote document to local cache failed", zap.String("key", key), zap.Error(putErr))
			}
			return true, decode(key, payload, dst)
		}
		if err != nil {
			s.logger.Warn("remote load failed, using local cache", zap.String("key", key), zap.Error(err))
		}
	}

	payload, found, err := s.local.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	return true, decode(key, payload, dst)
}

// Save writes remote first. A local mirror failure after a remote success
// is swallowed; a remote failure falls back to the local cache and only a
// local failure is returned.
func (s *Synchronizer) Save(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	var remoteErr error
	if s.remote != nil {
		remoteErr = s.remotePut(ctx, key, payload)
		if remoteErr == nil {
			if putErr := s.local.Put(ctx, key, payload); putErr != nil {
				s.logger.Warn("mirror saved document to local cache failed", zap.String("key", key), zap.Error(putErr))
			}
			return nil
		}
		s.logger.Warn("remote save failed, writing local cache only", zap.String("key", key), zap.Error(remoteErr))
	}

	if err := s.local.Put(ctx, key, payload); err != nil {
		var quotaErr *QuotaError
		if errors.As(err, &quotaErr) {
			return quotaErr
		}
		if remoteErr != nil {
			return fmt.Errorf("save %s: %w: remote: %v; local: %v", key, ErrBackendUnavailable, remoteErr, err)
		}
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// CopyIfAbsent copies the document under fromKey to toKey on every
// reachable tier where toKey is not already present. Existing toKey data
// is never overwritten.
func (s *Synchronizer) CopyIfAbsent(ctx context.Context, fromKey string, toKey string) (bool, error) {
	copied, err := copyIfAbsent(ctx, s.local, fromKey, toKey)
	if err != nil {
		return false, fmt.Errorf("copy %s -> %s on %s: %w", fromKey, toKey, s.local.Name(), err)
	}

	if s.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		remoteCopied, remoteErr := copyIfAbsent(rctx, s.remote, fromKey, toKey)
		cancel()
		if remoteErr != nil {
			s.markRemote(remoteErr)
			s.logger.Warn("remote copy skipped", zap.String("from", fromKey), zap.String("to", toKey), zap.Error(remoteErr))
		} else {
			s.markRemote(nil)
			copied = copied || remoteCopied
		}
	}
	return copied, nil
}

func copyIfAbsent(ctx context.Context, backend Backend, fromKey string, toKey string) (bool, error) {
	if _, exists, err := backend.Get(ctx, toKey); err != nil || exists {
		return false, err
	}
	payload, found, err := backend.Get(ctx, fromKey)
	if err != nil || !found {
		return false, err
	}
	if err := backend.Put(ctx, toKey, payload); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Synchronizer) remoteGet(ctx context.Context, key string) ([]byte, bool, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	payload, found, err := s.remote.Get(rctx, key)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, s.remote.Name(), err)
	}
	s.markRemote(err)
	return payload, found, err
}

func (s *Synchronizer) remotePut(ctx context.Context, key string, payload []byte) error {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := s.remote.Put(rctx, key, payload)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, s.remote.Name(), err)
	}
	s.markRemote(err)
	return err
}

func (s *Synchronizer) markRemote(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.status.RemoteHealthy = true
		return
	}
	now := time.Now().UTC()
	s.status.RemoteHealthy = false
	s.status.LastRemoteError = err.Error()
	s.status.LastRemoteErrorAt = &now
}

func decode(key string, payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
