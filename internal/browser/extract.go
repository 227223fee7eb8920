package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
)

// Message is one extracted message entry, in document (chronological) order.
// Materialized fresh on every extraction; never cached.
type Message struct {
	From      string `json:"from"`      // "You", "Contact", or "" when direction is unknown
	Text      string `json:"text"`
	Time      string `json:"time"`      // display timestamp, application-formatted free text
	Direction string `json:"direction"` // "outgoing", "incoming", or ""
}

// InboxEntry is one extracted conversation preview from the inbox list.
type InboxEntry struct {
	Phone     string `json:"phone"`     // raw participant label as displayed
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"` // display timestamp free text
	Unread    bool   `json:"unread"`
}

// Selectors for the two view shapes this bridge understands. These track the
// upstream application's markup and are the first thing to check when it
// ships a redesign.
const (
	inboxListSelector   = "ol.list"
	messageItemSelector = "section .messages-container ul.list li gv-text-message-item"
	composerSelector    = ".message-input-container textarea.message-input"
)

// inboxEntriesJS projects the rendered inbox list into preview records.
// Every sub-element is optional: missing nodes become empty fields, a missing
// container means unread=false. Entries without a participant label carry no
// usable identity and are skipped.
const inboxEntriesJS = `
() => {
	const items = document.querySelectorAll("li.list-item");
	const list = [];
	items.forEach((li) => {
		const container = li.querySelector(".container");
		const unread = !!container && !container.classList.contains("read");
		const phoneEl = li.querySelector(".title .participants");
		const snippetEl = li.querySelector(".subtitle .preview");
		const timeEl = li.querySelector(".title .timestamp");
		const phone = phoneEl ? phoneEl.textContent.trim() : "";
		if (!phone) return;
		list.push({
			phone,
			snippet: snippetEl ? snippetEl.textContent.trim() : "",
			timestamp: timeEl ? timeEl.textContent.trim() : "",
			unread,
		});
	});
	return list;
}
`

// messagesJS projects the rendered conversation into message records in
// top-to-bottom document order. Direction comes from marker classes; the
// timestamp prefers the nested fine-grained node over the status node's own
// text and falls back to "".
const messagesJS = `
() => {
	const sel = "section .messages-container ul.list li gv-text-message-item .full-container";
	const result = [];
	document.querySelectorAll(sel).forEach((el) => {
		const classes = el.className;
		const isOut = classes.includes("outgoing");
		const isIn = classes.includes("incoming");
		const textEl = el.querySelector(".content");
		let time = "";
		const statusEl = el.querySelector(".status");
		if (statusEl) {
			const st = statusEl.querySelector(".sender-timestamp .timestamp");
			time = st ? st.textContent.trim() : statusEl.textContent.trim();
		}
		result.push({
			from: isOut ? "You" : (isIn ? "Contact" : ""),
			text: textEl ? textEl.textContent.trim() : "",
			time,
			direction: isOut ? "outgoing" : (isIn ? "incoming" : ""),
		});
	});
	return result;
}
`

// evaluateJSON runs a JS projection on the page and returns the raw JSON.
func evaluateJSON(page *rod.Page, js string) ([]byte, error) {
	res, err := page.Evaluate(&rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Nil() {
		return []byte("[]"), nil
	}
	return res.Value.MarshalJSON()
}

// extractInboxEntries pulls conversation previews from the current view.
func extractInboxEntries(page *rod.Page) ([]InboxEntry, error) {
	raw, err := evaluateJSON(page, inboxEntriesJS)
	if err != nil {
		return nil, fmt.Errorf("inbox extraction: %w", err)
	}
	return decodeInboxEntries(raw)
}

// extractMessages pulls the message list from the current view.
func extractMessages(page *rod.Page) ([]Message, error) {
	raw, err := evaluateJSON(page, messagesJS)
	if err != nil {
		return nil, fmt.Errorf("message extraction: %w", err)
	}
	return decodeMessages(raw)
}

// decodeInboxEntries decodes the JS projection. Absent fields decode to zero
// values, so a partially rendered entry still yields a record.
func decodeInboxEntries(raw []byte) ([]InboxEntry, error) {
	var entries []InboxEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode inbox entries: %w", err)
	}
	return entries, nil
}

func decodeMessages(raw []byte) ([]Message, error) {
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}
