package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// waitVisible blocks until the selector is present and visible, bounded by the
// navigation timeout. The returned error wraps sentinel so callers can
// classify the failure.
func (s *Session) waitVisible(ctx context.Context, page *rod.Page, selector string, sentinel error) error {
	p := page.Context(ctx).Timeout(s.cfg.NavTimeoutDuration())
	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("%w: waiting for %q: %v", sentinel, selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("%w: %q present but not visible: %v", sentinel, selector, err)
	}
	return nil
}

// gotoInbox drives the page to an account's inbox and waits until the list is
// interactively ready. The fixed settle delay after the container appears
// tolerates asynchronous population of entries; it is best-effort
// synchronization, not a correctness guarantee.
func (s *Session) gotoInbox(ctx context.Context, page *rod.Page, account int) error {
	url := s.inboxURL(account)
	if err := page.Context(ctx).Timeout(s.cfg.NavTimeoutDuration()).Navigate(url); err != nil {
		return fmt.Errorf("%w: navigate %s: %v", ErrNavigationTimeout, url, err)
	}
	if err := s.waitVisible(ctx, page, inboxListSelector, ErrNavigationTimeout); err != nil {
		return err
	}
	if err := sleep(ctx, s.cfg.ListSettleDuration()); err != nil {
		return err
	}
	s.log.Debug("inbox ready", zap.Int("account", account))
	return nil
}

// gotoConversation drives the page directly to a conversation by its opaque
// item reference and waits for the message list to render.
func (s *Session) gotoConversation(ctx context.Context, page *rod.Page, account int, itemID string) error {
	url := s.conversationURL(account, itemID)
	if err := page.Context(ctx).Timeout(s.cfg.NavTimeoutDuration()).Navigate(url); err != nil {
		return fmt.Errorf("%w: navigate %s: %v", ErrNavigationTimeout, url, err)
	}
	return s.waitVisible(ctx, page, messageItemSelector, ErrNavigationTimeout)
}

// openByLabelJS scans the rendered inbox list top to bottom and clicks the
// first entry whose participant label equals the query exactly. No
// normalization happens at match time; the displayed label must equal the
// query string.
const openByLabelJS = `
(p) => {
	const lis = Array.from(document.querySelectorAll("li.list-item"));
	for (const li of lis) {
		const phoneEl = li.querySelector(".title .participants");
		if (phoneEl && phoneEl.textContent.trim() === p) {
			const container = li.querySelector(".container");
			if (container) container.click();
			return true;
		}
	}
	return false;
}
`

// openConversationByLabel locates a conversation in the currently rendered
// inbox list and opens it. A missing label is a normal outcome and reports
// ErrConversationNotFound. A clicked entry whose message container never
// renders reports ErrExtractionTimeout, the usual signature of an upstream
// markup change.
func (s *Session) openConversationByLabel(ctx context.Context, page *rod.Page, label string) error {
	if err := s.waitVisible(ctx, page, inboxListSelector, ErrNavigationTimeout); err != nil {
		return err
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           openByLabelJS,
		JSArgs:       []interface{}{label},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("label scan: %w", err)
	}
	if res == nil || !res.Value.Bool() {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, label)
	}

	return s.waitVisible(ctx, page, messageItemSelector, ErrExtractionTimeout)
}
