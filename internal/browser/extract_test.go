package browser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeMessagesTolerance(t *testing.T) {
	// Records with missing optional fields decode to empty strings rather
	// than failing the whole extraction.
	raw := []byte(`[
		{"from":"You","text":"hi","time":"2:15 PM","direction":"outgoing"},
		{"from":"Contact","text":"yo","direction":"incoming"},
		{"text":"status-only"},
		{}
	]`)

	got, err := decodeMessages(raw)
	if err != nil {
		t.Fatalf("decodeMessages: %v", err)
	}
	want := []Message{
		{From: "You", Text: "hi", Time: "2:15 PM", Direction: "outgoing"},
		{From: "Contact", Text: "yo", Direction: "incoming"},
		{Text: "status-only"},
		{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMessagesPreservesOrder(t *testing.T) {
	raw := []byte(`[{"text":"first"},{"text":"second"},{"text":"third"}]`)
	got, err := decodeMessages(raw)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Errorf("msgs[%d].Text = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestDecodeMessagesEmpty(t *testing.T) {
	got, err := decodeMessages([]byte(`[]`))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", got)
	}

	got, err = decodeMessages([]byte(`null`))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("null projection should decode to empty slice")
	}
}

func TestDecodeInboxEntriesTolerance(t *testing.T) {
	raw := []byte(`[
		{"phone":"(555) 123-4567","snippet":"see you soon","timestamp":"9:01 AM","unread":true},
		{"phone":"(555) 987-6543","unread":false},
		{"phone":"(555) 000-1111"}
	]`)

	got, err := decodeInboxEntries(raw)
	if err != nil {
		t.Fatalf("decodeInboxEntries: %v", err)
	}
	want := []InboxEntry{
		{Phone: "(555) 123-4567", Snippet: "see you soon", Timestamp: "9:01 AM", Unread: true},
		{Phone: "(555) 987-6543"},
		{Phone: "(555) 000-1111"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeInboxEntriesMalformed(t *testing.T) {
	if _, err := decodeInboxEntries([]byte(`{"not":"a list"}`)); err == nil {
		t.Error("expected error for non-array projection")
	}
}
