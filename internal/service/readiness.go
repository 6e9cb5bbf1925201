package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var ErrNotListening = errors.New("listeners not started")

type Pinger interface {
	Ping(ctx context.Context) error
}

// Readiness reports ready once the listeners are up and the store answers.
type Readiness struct {
	store     Pinger
	timeout   time.Duration
	listening atomic.Bool
}

func NewReadiness(store Pinger) *Readiness {
	return &Readiness{store: store, timeout: 2 * time.Second}
}

func (r *Readiness) MarkListening() {
	r.listening.Store(true)
}

func (r *Readiness) Check(ctx context.Context) error {
	if !r.listening.Load() {
		return ErrNotListening
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
