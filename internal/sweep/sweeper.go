// Package sweep periodically reconciles every account's inbox into the store.
//
// The sweep is best-effort by design: a failing account is logged and skipped,
// a failing row is logged and skipped, and a tick is dropped entirely (never
// queued) when the previous tick is still running or an external campaign
// holds the session.
package sweep

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voicebridge/internal/browser"
	"voicebridge/internal/phone"
	"voicebridge/internal/store"
)

// InboxSource yields conversation previews for one account.
type InboxSource interface {
	SweepInbox(ctx context.Context, account int) ([]browser.InboxEntry, error)
}

// InboxStore receives reconciled rows and carries the exclusivity signal.
type InboxStore interface {
	HasActiveCampaign(ctx context.Context) (bool, error)
	UpsertInbox(ctx context.Context, row store.InboxRow) error
}

// Sweeper drives the periodic reconciliation.
type Sweeper struct {
	src       InboxSource
	store     InboxStore
	backendID string
	accounts  int
	interval  time.Duration
	startup   time.Duration
	log       *zap.Logger

	running atomic.Bool
	now     func() time.Time
}

// New creates a sweeper over account indices 0..accounts-1.
func New(src InboxSource, st InboxStore, backendID string, accounts int, interval, startupDelay time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		src:       src,
		store:     st,
		backendID: backendID,
		accounts:  accounts,
		interval:  interval,
		startup:   startupDelay,
		log:       log,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled. The first sweep waits out the startup
// delay so the session has a chance to finish its initial navigation.
func (s *Sweeper) Run(ctx context.Context) error {
	select {
	case <-time.After(s.startup):
	case <-ctx.Done():
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. It reports false when the sweep was
// skipped: a previous sweep still in flight, an active campaign, or a failed
// campaign check.
func (s *Sweeper) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("sweep still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	active, err := s.store.HasActiveCampaign(ctx)
	if err != nil {
		s.log.Error("campaign check failed, skipping sweep", zap.Error(err))
		return false
	}
	if active {
		s.log.Info("active campaign running, skipping sweep")
		return false
	}

	start := s.now()
	var swept, failed int
	for account := 0; account < s.accounts; account++ {
		if ctx.Err() != nil {
			return true
		}
		if err := s.sweepAccount(ctx, account); err != nil {
			// One unreachable account must not abort the rest.
			failed++
			s.log.Error("inbox sweep failed",
				zap.Int("account", account),
				zap.Error(err))
			continue
		}
		swept++
	}

	s.log.Info("inbox sweep complete",
		zap.Int("accounts_swept", swept),
		zap.Int("accounts_failed", failed),
		zap.Duration("elapsed", s.now().Sub(start)))
	return true
}

func (s *Sweeper) sweepAccount(ctx context.Context, account int) error {
	entries, err := s.src.SweepInbox(ctx, account)
	if err != nil {
		return err
	}

	observed := s.now().UTC()
	for _, entry := range entries {
		key := phone.Normalize(entry.Phone)
		if key == "" {
			// Unidentifiable conversation, nothing to key a row on.
			s.log.Debug("skipping entry with no usable phone label",
				zap.Int("account", account),
				zap.String("label", entry.Phone))
			continue
		}

		unread := 0
		if entry.Unread {
			unread = 1
		}
		row := store.InboxRow{
			BackendID:     s.backendID,
			AccountIndex:  account,
			Phone:         key,
			LastMessage:   entry.Snippet,
			LastMessageAt: observed,
			UnreadCount:   unread,
			UpdatedAt:     observed,
		}
		if err := s.store.UpsertInbox(ctx, row); err != nil {
			// Per-row isolation: log and continue with the rest.
			s.log.Error("inbox upsert failed",
				zap.Int("account", account),
				zap.String("phone", key),
				zap.Error(err))
		}
	}

	s.log.Debug("account swept",
		zap.Int("account", account),
		zap.Int("entries", len(entries)))
	return nil
}
