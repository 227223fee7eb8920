package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"go.uber.org/zap"
)

// ReadByItemID navigates to a conversation by its opaque item reference and
// returns the rendered message list verbatim. Nothing is persisted; reading a
// conversation must not disturb the open view with a competing write.
func (s *Session) ReadByItemID(ctx context.Context, account int, itemID string) ([]Message, error) {
	var msgs []Message
	err := s.With(ctx, func(page *rod.Page) error {
		if err := s.gotoConversation(ctx, page, account, itemID); err != nil {
			return err
		}
		var err error
		msgs, err = extractMessages(page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ReadByLabel opens a conversation by exact participant label match within the
// currently rendered inbox list and returns its messages. The label is matched
// as displayed; callers holding a normalized key must pass the displayed form.
func (s *Session) ReadByLabel(ctx context.Context, account int, label string) ([]Message, error) {
	var msgs []Message
	err := s.With(ctx, func(page *rod.Page) error {
		if err := s.openConversationByLabel(ctx, page, label); err != nil {
			return err
		}
		var err error
		msgs, err = extractMessages(page)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("conversation read",
		zap.Int("account", account),
		zap.String("label", label),
		zap.Int("messages", len(msgs)))
	return msgs, nil
}

// Send types text into the composer of whatever conversation is currently
// open and submits it. It deliberately does not navigate: the caller is
// responsible for having positioned the session on the intended conversation.
// Delivery is best effort; a reported success means the submit action fired
// and the send settle elapsed without the composer erroring.
func (s *Session) Send(ctx context.Context, account int, text string) error {
	return s.With(ctx, func(page *rod.Page) error {
		p := page.Context(ctx).Timeout(s.cfg.ComposerTimeoutDuration())
		el, err := p.Element(composerSelector)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrComposerNotReady, err)
		}
		if err := el.WaitVisible(); err != nil {
			return fmt.Errorf("%w: %v", ErrComposerNotReady, err)
		}

		// Select-all so typing replaces any leftover draft.
		if err := el.SelectAllText(); err != nil {
			return fmt.Errorf("clear composer: %w", err)
		}
		if err := el.Input(text); err != nil {
			return fmt.Errorf("type message: %w", err)
		}
		if err := sleep(ctx, s.cfg.ComposeSettleDuration()); err != nil {
			return err
		}
		if err := el.Type(input.Enter); err != nil {
			return fmt.Errorf("submit message: %w", err)
		}
		if err := sleep(ctx, s.cfg.SendSettleDuration()); err != nil {
			return err
		}

		s.log.Info("message sent",
			zap.Int("account", account),
			zap.Int("chars", len(text)))
		return nil
	})
}

// SweepInbox navigates to an account's inbox and returns its conversation
// previews. Used by the reconciliation loop.
func (s *Session) SweepInbox(ctx context.Context, account int) ([]InboxEntry, error) {
	var entries []InboxEntry
	err := s.With(ctx, func(page *rod.Page) error {
		if err := s.gotoInbox(ctx, page, account); err != nil {
			return err
		}
		var err error
		entries, err = extractInboxEntries(page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
