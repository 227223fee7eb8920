package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"voicebridge/internal/browser"
	"voicebridge/internal/store"
)

type fakeSource struct {
	mu       sync.Mutex
	entries  map[int][]browser.InboxEntry
	failing  map[int]error
	swept    []int
	blocking chan struct{} // when set, SweepInbox blocks until closed
}

func (f *fakeSource) SweepInbox(ctx context.Context, account int) ([]browser.InboxEntry, error) {
	if f.blocking != nil {
		<-f.blocking
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept = append(f.swept, account)
	if err, ok := f.failing[account]; ok {
		return nil, err
	}
	return f.entries[account], nil
}

type fakeStore struct {
	mu             sync.Mutex
	campaignActive bool
	campaignErr    error
	upserts        []store.InboxRow
	upsertErrFor   string // phone key that fails to upsert
}

func (f *fakeStore) HasActiveCampaign(ctx context.Context) (bool, error) {
	return f.campaignActive, f.campaignErr
}

func (f *fakeStore) UpsertInbox(ctx context.Context, row store.InboxRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.Phone == f.upsertErrFor {
		return errors.New("disk full")
	}
	f.upserts = append(f.upserts, row)
	return nil
}

func newTestSweeper(src *fakeSource, st *fakeStore, accounts int) *Sweeper {
	return New(src, st, "bridge-0", accounts, time.Minute, 0, zap.NewNop())
}

func entry(label, snippet string, unread bool) browser.InboxEntry {
	return browser.InboxEntry{Phone: label, Snippet: snippet, Unread: unread}
}

func TestRunOnceUpsertsNormalizedRows(t *testing.T) {
	src := &fakeSource{entries: map[int][]browser.InboxEntry{
		0: {entry("(555) 123-4567", "hello", true)},
		1: {entry("+1 555 987 6543", "later", false)},
	}}
	st := &fakeStore{}
	s := newTestSweeper(src, st, 2)

	if !s.RunOnce(context.Background()) {
		t.Fatal("sweep was skipped")
	}

	if len(st.upserts) != 2 {
		t.Fatalf("upserts = %d, want 2", len(st.upserts))
	}
	first := st.upserts[0]
	if first.Phone != "15551234567" {
		t.Errorf("phone not normalized: %q", first.Phone)
	}
	if first.UnreadCount != 1 {
		t.Errorf("unread count = %d, want 1", first.UnreadCount)
	}
	if first.BackendID != "bridge-0" || first.AccountIndex != 0 {
		t.Errorf("row key = %s/%d", first.BackendID, first.AccountIndex)
	}
	if st.upserts[1].UnreadCount != 0 {
		t.Errorf("read entry should upsert unread 0")
	}
}

// A navigation timeout on one account must not abort the remaining accounts.
func TestRunOncePartialFailureIsolation(t *testing.T) {
	entries := make(map[int][]browser.InboxEntry)
	for i := 0; i < 10; i++ {
		entries[i] = []browser.InboxEntry{entry(fmt.Sprintf("(555) 000-00%02d", i), "hi", false)}
	}
	src := &fakeSource{
		entries: entries,
		failing: map[int]error{3: browser.ErrNavigationTimeout},
	}
	st := &fakeStore{}
	s := newTestSweeper(src, st, 10)

	if !s.RunOnce(context.Background()) {
		t.Fatal("sweep was skipped")
	}

	if len(src.swept) != 10 {
		t.Errorf("visited %d accounts, want all 10", len(src.swept))
	}
	if len(st.upserts) != 9 {
		t.Fatalf("upserts = %d, want 9 (all but account 3)", len(st.upserts))
	}
	for _, row := range st.upserts {
		if row.AccountIndex == 3 {
			t.Errorf("account 3 produced an upsert despite failing")
		}
	}
}

func TestRunOnceSkipsOnActiveCampaign(t *testing.T) {
	src := &fakeSource{entries: map[int][]browser.InboxEntry{0: {entry("(555) 123-4567", "x", false)}}}
	st := &fakeStore{campaignActive: true}
	s := newTestSweeper(src, st, 1)

	if s.RunOnce(context.Background()) {
		t.Error("sweep should be skipped while a campaign is active")
	}
	if len(src.swept) != 0 {
		t.Error("no account should be visited during a campaign")
	}
}

func TestRunOnceSkipsUnidentifiableEntries(t *testing.T) {
	src := &fakeSource{entries: map[int][]browser.InboxEntry{
		0: {entry("no digits here", "x", false), entry("(555) 123-4567", "y", false)},
	}}
	st := &fakeStore{}
	s := newTestSweeper(src, st, 1)

	s.RunOnce(context.Background())
	if len(st.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(st.upserts))
	}
	if st.upserts[0].Phone != "15551234567" {
		t.Errorf("wrong row survived: %q", st.upserts[0].Phone)
	}
}

func TestRunOnceRowFailureIsolated(t *testing.T) {
	src := &fakeSource{entries: map[int][]browser.InboxEntry{
		0: {entry("(555) 111-2222", "a", false), entry("(555) 333-4444", "b", false)},
	}}
	st := &fakeStore{upsertErrFor: "15551112222"}
	s := newTestSweeper(src, st, 1)

	if !s.RunOnce(context.Background()) {
		t.Fatal("sweep was skipped")
	}
	if len(st.upserts) != 1 || st.upserts[0].Phone != "15553334444" {
		t.Errorf("surviving upserts = %+v", st.upserts)
	}
}

// An overlapping tick is dropped, not queued.
func TestRunOnceSkipsWhileRunning(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{
		entries:  map[int][]browser.InboxEntry{0: nil},
		blocking: block,
	}
	st := &fakeStore{}
	s := newTestSweeper(src, st, 1)

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()

	// Wait for the first sweep to be inside SweepInbox.
	for !s.running.Load() {
		time.Sleep(100 * time.Microsecond)
	}
	if s.RunOnce(context.Background()) {
		t.Error("second tick should be skipped while first is running")
	}

	close(block)
	<-done
}
