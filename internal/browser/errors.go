package browser

import "errors"

// Failure taxonomy for the automation layer. Handlers dispatch on these with
// errors.Is; none are retried automatically.
var (
	// ErrSessionNotReady is returned before the one-time startup navigation
	// has completed, or after shutdown. Requests are rejected immediately
	// rather than queued.
	ErrSessionNotReady = errors.New("automation session not ready")

	// ErrNavigationTimeout is returned when a view's root container never
	// becomes visible within the navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timed out")

	// ErrConversationNotFound is returned when a label lookup matches no
	// rendered inbox entry. This is a normal outcome, not a defect.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrComposerNotReady is returned when the message input cannot be
	// located within its readiness wait.
	ErrComposerNotReady = errors.New("message composer not ready")

	// ErrExtractionTimeout is returned when navigation succeeded but the
	// extraction container never appeared, which usually means the upstream
	// markup shape changed.
	ErrExtractionTimeout = errors.New("extraction container never appeared")
)
