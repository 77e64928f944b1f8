// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package throttle provides a BadgerDB-backed TTL limiter for expensive
// operations. Keys survive process restarts when a store path is
// configured, so a crash loop cannot be used to bypass the spacing.
package throttle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrClosed is returned when the limiter is used after Close.
var ErrClosed = errors.New("throttle limiter is closed")

// Limiter admits at most one operation per key per TTL window.
type Limiter struct {
	db     *badger.DB
	ttl    time.Duration
	prefix []byte

	mu     sync.RWMutex
	closed bool
}

// New opens a limiter. An empty path uses in-memory storage, which is
// sufficient for tests and for deployments that accept reset-on-restart.
func New(path string, ttl time.Duration) (*Limiter, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	// Badger logs through its own logger by default; quiet it, the limiter
	// surfaces errors to callers.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open throttle store: %w", err)
	}

	return &Limiter{
		db:     db,
		ttl:    ttl,
		prefix: []byte("throttle:"),
	}, nil
}

// makeKey builds the store key for an identity.
func (l *Limiter) makeKey(key string) []byte {
	return append(append([]byte(nil), l.prefix...), []byte(key)...)
}

// Allow reports whether the operation identified by key may run now. The
// first call per TTL window wins; subsequent calls are rejected until the
// entry expires. The check and the claim are one Badger transaction.
func (l *Limiter) Allow(key string) (bool, error) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return false, ErrClosed
	}
	l.mu.RUnlock()

	if l.ttl <= 0 {
		return true, nil
	}

	storeKey := l.makeKey(key)
	allowed := false

	err := l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(storeKey)
		if err == nil {
			// Live entry: still inside the window.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry := badger.NewEntry(storeKey, []byte{1}).WithTTL(l.ttl)
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		allowed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("throttle check failed: %w", err)
	}

	return allowed, nil
}

// Reset clears the window for a key, re-admitting the next call.
func (l *Limiter) Reset(key string) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	l.mu.RUnlock()

	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(l.makeKey(key))
	})
	if err != nil {
		return fmt.Errorf("throttle reset failed: %w", err)
	}
	return nil
}

// Close releases the underlying store. Safe to call twice.
func (l *Limiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close throttle store: %w", err)
	}
	return nil
}
