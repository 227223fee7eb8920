// Package browser drives the single shared automation session against the
// messaging web application: one live Chrome page whose navigation state is
// serialized behind a FIFO gate and read through per-view DOM extractors.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"voicebridge/internal/config"
)

// Session owns the browser and its single page. All navigation and extraction
// happens inside With, which grants exclusive access in FIFO order; nothing
// outside a granted window may touch the page.
type Session struct {
	cfg     config.BrowserConfig
	baseURL string
	log     *zap.Logger

	gate gate

	mu      sync.RWMutex
	browser *rod.Browser
	page    *rod.Page
	ready   bool
	closed  bool
}

// New creates an unstarted session.
func New(baseURL string, cfg config.BrowserConfig, log *zap.Logger) *Session {
	return &Session{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Start launches Chrome, opens the page, and performs the one-time startup
// navigation to account 0's inbox. Called once; if it fails the session stays
// not-ready until the process is restarted. A stale login shows up here as a
// page that renders but never lists conversations, which is why the operator
// runs headful with a persistent user data dir.
func (s *Session) Start(ctx context.Context) error {
	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}
	if s.cfg.UserDataDir != "" {
		l = l.UserDataDir(s.cfg.UserDataDir)
	}
	for _, rawFlag := range s.cfg.Launch {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return fmt.Errorf("create page: %w", err)
	}

	startURL := s.inboxURL(0)
	if err := page.Timeout(s.cfg.NavTimeoutDuration()).Navigate(startURL); err != nil {
		_ = b.Close()
		return fmt.Errorf("startup navigation to %s: %w", startURL, err)
	}
	_ = page.Timeout(s.cfg.NavTimeoutDuration()).WaitLoad()

	s.mu.Lock()
	s.browser = b
	s.page = page
	s.ready = true
	s.mu.Unlock()

	s.log.Info("automation session ready",
		zap.String("start_url", startURL),
		zap.Bool("headless", s.cfg.Headless))
	return nil
}

// Ready reports whether the startup navigation has completed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && !s.closed
}

// Shutdown closes the page and browser. In-flight work finishes first.
func (s *Session) Shutdown(ctx context.Context) error {
	if err := s.gate.acquire(ctx); err != nil {
		return err
	}
	defer s.gate.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.ready = false

	var err error
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.log.Info("automation session closed")
	return err
}

// With runs fn with exclusive access to the page. Requests are served in
// arrival order; a caller that cancels its context before its turn leaves the
// queue. Once fn starts it runs to completion or failure. The page must not
// be retained outside fn.
func (s *Session) With(ctx context.Context, fn func(page *rod.Page) error) error {
	if !s.Ready() {
		return ErrSessionNotReady
	}
	if err := s.gate.acquire(ctx); err != nil {
		return err
	}
	defer s.gate.release()

	s.mu.RLock()
	page := s.page
	closed := s.closed
	s.mu.RUnlock()
	if closed || page == nil {
		return ErrSessionNotReady
	}
	return fn(page)
}

// QueueDepth returns how many units are waiting on the session.
func (s *Session) QueueDepth() int {
	return s.gate.waiting()
}

func (s *Session) inboxURL(account int) string {
	return fmt.Sprintf("%s/u/%d/messages", s.baseURL, account)
}

func (s *Session) conversationURL(account int, itemID string) string {
	return fmt.Sprintf("%s/u/%d/messages?itemId=%s", s.baseURL, account, itemID)
}

// sleep waits for d or until ctx is cancelled. Settle delays route through
// here so a cancelled unit does not linger.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
