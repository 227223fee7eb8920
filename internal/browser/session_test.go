package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"voicebridge/internal/config"
)

func TestWithBeforeStartup(t *testing.T) {
	s := New("https://voice.example.com", config.BrowserConfig{}, zap.NewNop())

	// No queuing before the session exists: the rejection is immediate.
	err := s.With(context.Background(), func(*rod.Page) error {
		t.Fatal("unit must not run against an unstarted session")
		return nil
	})
	if !errors.Is(err, ErrSessionNotReady) {
		t.Fatalf("got %v, want ErrSessionNotReady", err)
	}
	if s.QueueDepth() != 0 {
		t.Errorf("rejected request must not occupy the queue")
	}
}

func TestActionsBeforeStartup(t *testing.T) {
	s := New("https://voice.example.com", config.BrowserConfig{}, zap.NewNop())
	ctx := context.Background()

	if _, err := s.ReadByItemID(ctx, 0, "t.%2B15551234567"); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("ReadByItemID: got %v", err)
	}
	if _, err := s.ReadByLabel(ctx, 0, "(555) 123-4567"); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("ReadByLabel: got %v", err)
	}
	if err := s.Send(ctx, 0, "hello"); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("Send: got %v", err)
	}
	if _, err := s.SweepInbox(ctx, 3); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("SweepInbox: got %v", err)
	}
}

func TestURLBuilding(t *testing.T) {
	s := New("https://voice.example.com/", config.BrowserConfig{}, zap.NewNop())
	if got := s.inboxURL(3); got != "https://voice.example.com/u/3/messages" {
		t.Errorf("inboxURL = %q", got)
	}
	if got := s.conversationURL(0, "t.%2B15551234567"); got != "https://voice.example.com/u/0/messages?itemId=t.%2B15551234567" {
		t.Errorf("conversationURL = %q", got)
	}
}
