package flow

// State is the payment dialog's position in the unlock exchange. Idle is
// both the initial state and the target of every terminal failure; the
// dialog can always be reopened to retry.
type State string

const (
	// StateIdle means no payment dialog is open.
	StateIdle State = "idle"

	// StateTermsPending means the dialog is open and terms are being fetched.
	StateTermsPending State = "terms-pending"

	// StateWalletPending means terms are known and a wallet action is awaited.
	StateWalletPending State = "wallet-pending"

	// StateNetworkSwitching means the wallet chain is being aligned.
	StateNetworkSwitching State = "network-switching"

	// StateSigning means a wallet signature prompt is outstanding.
	StateSigning State = "signing"

	// StateSubmitting means the unlock request is in flight.
	StateSubmitting State = "submitting"

	// StateUnlocked means the resource URL has been released.
	StateUnlocked State = "unlocked"
)

// EventLevel grades a user-facing notification.
type EventLevel string

const (
	EventInfo    EventLevel = "info"
	EventSuccess EventLevel = "success"
	EventError   EventLevel = "error"
)

// Event is a short, specific, user-presentable notification. Raw provider
// and HTTP errors are logged with full context but never forwarded verbatim
// in Message.
type Event struct {
	Level   EventLevel
	Message string
	Err     error
}

// EventSink receives flow events; the UI renders them as toasts.
type EventSink func(Event)

// Opener opens the unlocked URL in a new browsing context. An error means
// the host blocked it; the flow then surfaces a manual-click fallback
// instead of failing the payment.
type Opener interface {
	OpenURL(url string) error
}

// TokenSource returns the current bearer token, or "" when the user has no
// session. It must not block; absence is tolerated but logged as a risk.
type TokenSource func() string
