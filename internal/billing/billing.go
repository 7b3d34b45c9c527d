// Package billing runs the checkout flow behind subscription upgrades. The
// simulated processor stands in for an M-Pesa/card gateway and always
// settles after a fixed delay.
package billing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kaziflow/internal/domain"
)

// Payment methods accepted at checkout.
const (
	MethodMpesa = "mpesa"
	MethodCard  = "card"
)

// Request describes one checkout attempt.
type Request struct {
	Tier   domain.SubscriptionTier
	Method string
	Phone  string
	Amount string
}

// Receipt is the settled result of a checkout.
type Receipt struct {
	ID        string `json:"id"`
	Tier      string `json:"tier"`
	Method    string `json:"method"`
	Amount    string `json:"amount"`
	SettledAt string `json:"settled_at"`
}

// Processor settles payments. Initiate validates and returns a pending
// reference; Await blocks until the payment settles or ctx is done.
type Processor interface {
	Initiate(ctx context.Context, req Request) (string, error)
	Await(ctx context.Context, ref string) (Receipt, error)
}

// InvalidPaymentError indicates a rejected checkout request.
type InvalidPaymentError struct {
	Field  string
	Reason string
}

func (e InvalidPaymentError) Error() string {
	return fmt.Sprintf("payment %s: %s", e.Field, e.Reason)
}

// Simulated settles every initiated payment after Delay. One instance is
// shared across request goroutines; pending is guarded by mu.
type Simulated struct {
	Delay  time.Duration
	Logger zerolog.Logger
	Now    func() time.Time

	mu      sync.Mutex
	pending map[string]Request
}

func NewSimulated(delay time.Duration, logger zerolog.Logger) *Simulated {
	return &Simulated{
		Delay:   delay,
		Logger:  logger,
		Now:     time.Now,
		pending: map[string]Request{},
	}
}

func (s *Simulated) Initiate(ctx context.Context, req Request) (string, error) {
	switch req.Method {
	case MethodMpesa:
		if strings.TrimSpace(req.Phone) == "" {
			return "", InvalidPaymentError{Field: "phone", Reason: "required for M-Pesa"}
		}
	case MethodCard:
	default:
		return "", InvalidPaymentError{Field: "method", Reason: "unknown method " + req.Method}
	}
	ref := uuid.New().String()
	s.mu.Lock()
	if s.pending == nil {
		s.pending = map[string]Request{}
	}
	s.pending[ref] = req
	s.mu.Unlock()
	s.Logger.Info().Str("ref", ref).Str("method", req.Method).Str("tier", string(req.Tier)).Msg("payment initiated")
	return ref, nil
}

func (s *Simulated) Await(ctx context.Context, ref string) (Receipt, error) {
	s.mu.Lock()
	req, ok := s.pending[ref]
	s.mu.Unlock()
	if !ok {
		return Receipt{}, fmt.Errorf("unknown payment reference %s", ref)
	}
	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-time.After(s.Delay):
	}
	s.mu.Lock()
	_, ok = s.pending[ref]
	delete(s.pending, ref)
	s.mu.Unlock()
	if !ok {
		// settled by a concurrent waiter
		return Receipt{}, fmt.Errorf("unknown payment reference %s", ref)
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}
	receipt := Receipt{
		ID:        ref,
		Tier:      string(req.Tier),
		Method:    req.Method,
		Amount:    req.Amount,
		SettledAt: now().UTC().Format(time.RFC3339),
	}
	s.Logger.Info().Str("ref", ref).Msg("payment settled")
	return receipt, nil
}
