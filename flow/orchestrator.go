package flow

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	unlock "github.com/copus-io/unlock-go"
	"github.com/copus-io/unlock-go/balance"
	"github.com/copus-io/unlock-go/eip3009"
	"github.com/copus-io/unlock-go/logger"
	"github.com/copus-io/unlock-go/metrics"
	"github.com/copus-io/unlock-go/provider"
	"github.com/copus-io/unlock-go/signing"
)

// Orchestrator is the top-level controller of one payment dialog. Within an
// attempt the sequence terms, connect, switch, sign, submit is strictly
// ordered; balance refreshes and terms prefetches are fire-and-forget and
// only improve perceived latency.
type Orchestrator struct {
	apiBase     string
	surface     provider.Surface
	httpClient  *http.Client
	tier        unlock.Tier
	window      time.Duration
	log         logger.Logger
	rec         metrics.Recorder
	tokenSource TokenSource
	opener      Opener
	events      EventSink
	authMethod  string
	oracle      *balance.Oracle
	signer      *signing.Adapter

	mu              sync.Mutex
	state           State
	session         *WalletSession
	selectedNetwork unlock.Network
	selectedToken   unlock.Token
	resource        uuid.UUID
	terms           *unlock.PaymentTerms
	serverTyped     *unlock.TypedAuthorization
	unlockedURL     string

	// inFlight rejects duplicate pay activations while one is submitting.
	inFlight atomic.Bool
}

// State returns the current dialog state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns a snapshot of the wallet session, or nil when none exists.
func (o *Orchestrator) Session() *WalletSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	snapshot := *o.session
	return &snapshot
}

// SelectedNetwork returns the network the dialog is set to.
func (o *Orchestrator) SelectedNetwork() unlock.Network {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selectedNetwork
}

// SelectedToken returns the currency the dialog is set to.
func (o *Orchestrator) SelectedToken() unlock.Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selectedToken
}

// Terms returns the cached payment terms, or nil before they resolve.
func (o *Orchestrator) Terms() *unlock.PaymentTerms {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.terms == nil {
		return nil
	}
	snapshot := *o.terms
	return &snapshot
}

// UnlockedURL returns the released resource URL after a successful payment.
func (o *Orchestrator) UnlockedURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unlockedURL
}

// Open starts a payment attempt for the given resource. The dialog opens
// immediately: the default network is chosen from the remembered auth
// method, a previously connected session survives only if its wallet kind is
// the authenticated one, and the terms fetch runs in the background.
func (o *Orchestrator) Open(ctx context.Context, resource uuid.UUID) {
	o.mu.Lock()
	o.state = StateTermsPending
	o.resource = resource
	o.selectedNetwork = unlock.DefaultNetwork(o.authMethod)
	o.selectedToken = unlock.DefaultToken(o.selectedNetwork)
	o.terms = nil
	o.serverTyped = nil
	o.unlockedURL = ""
	if o.session.Connected() && string(o.session.Kind) != o.authMethod {
		o.session = nil
	}
	network := o.selectedNetwork
	o.mu.Unlock()

	go func() {
		// Prefetch for perceived latency only; errors surface as events
		// and the dialog stays on network selection.
		_ = o.SelectNetwork(ctx, network)
	}()
}

// Close dismisses the dialog from any state. In-flight terms and EIP-712
// data for the attempt are discarded; network requests already in flight are
// not aborted, their results are simply ignored. The wallet session is kept
// until an explicit Disconnect.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.terms = nil
	o.serverTyped = nil
	o.unlockedURL = ""
}

// Disconnect destroys the wallet session.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = nil
	if o.state != StateIdle && o.state != StateTermsPending {
		o.state = StateWalletPending
	}
}

// SelectNetwork switches the dialog to a network and fetches fresh terms for
// it. Cached terms for any other network are discarded first: a stale terms
// object must never reach signing. A fetch failure surfaces as a toast and
// leaves the dialog on network selection for the next choice.
func (o *Orchestrator) SelectNetwork(ctx context.Context, network unlock.Network) error {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return errors.New("flow: dialog is not open")
	}
	o.selectedNetwork = network
	o.selectedToken = unlock.DefaultToken(network)
	o.terms = nil
	o.serverTyped = nil
	token := o.selectedToken
	resource := o.resource
	o.mu.Unlock()

	terms, serverTyped, err := o.fetchTerms(ctx, network, token, resource)
	if err != nil {
		o.log.Error("terms fetch failed", map[string]any{
			"network": network,
			"error":   err.Error(),
		})
		o.setStateIfOpen(StateTermsPending)
		o.emit(Event{Level: EventError, Message: "Could not load payment information.", Err: err})
		return err
	}

	o.mu.Lock()
	// The user may have picked another network while this fetch ran.
	if o.state != StateIdle && o.selectedNetwork == network {
		o.terms = &terms
		o.serverTyped = serverTyped
		// Advance only pre-payment states; a slow fetch must not clobber
		// an attempt that already moved past terms.
		if o.state == StateTermsPending || o.state == StateWalletPending {
			if o.session.Connected() {
				o.state = StateNetworkSwitching
			} else {
				o.state = StateWalletPending
			}
		}
	}
	o.mu.Unlock()
	return nil
}

// SelectToken switches the payment currency within the selected network.
func (o *Orchestrator) SelectToken(token unlock.Token) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !unlock.IsTokenSupported(o.selectedNetwork, token, o.tier) {
		return unlock.NewPaymentError(unlock.ErrCodeUnsupportedToken, "token not available on the selected network", unlock.ErrUnsupportedToken).
			WithDetails("network", string(o.selectedNetwork)).
			WithDetails("token", string(token))
	}
	o.selectedToken = token
	return nil
}

// Connect locates the wallet extension, prompts for connection and creates
// the session. The balance refresh runs in the background and never blocks
// the dialog's progress to the next step.
func (o *Orchestrator) Connect(ctx context.Context, kind provider.Kind) error {
	handle, ok := provider.Detect(o.surface, kind)
	if !ok {
		err := unlock.NewPaymentError(unlock.ErrCodeProviderNotFound, "wallet extension not found", unlock.ErrProviderNotFound).
			WithDetails("kind", string(kind))
		o.emit(Event{Level: EventError, Message: "Wallet not found. Please install the extension.", Err: err})
		return err
	}

	address, err := provider.RequestAccounts(ctx, handle.Provider)
	if err != nil {
		o.log.Warn("wallet connection failed", map[string]any{
			"kind":  kind,
			"error": err.Error(),
		})
		o.emit(Event{Level: EventError, Message: "Failed to connect wallet.", Err: err})
		return err
	}

	o.mu.Lock()
	o.session = &WalletSession{
		Address:          address,
		Handle:           handle,
		Kind:             kind,
		LastKnownBalance: BalanceLoading,
	}
	if o.state == StateWalletPending {
		o.state = StateNetworkSwitching
	}
	network := o.selectedNetwork
	token := o.selectedToken
	o.mu.Unlock()

	go o.refreshBalance(ctx, handle, address, network, token)

	o.emit(Event{Level: EventSuccess, Message: "Wallet connected."})
	return nil
}

// RefreshBalance re-reads the session balance in the background.
func (o *Orchestrator) RefreshBalance(ctx context.Context) {
	o.mu.Lock()
	session := o.session
	network := o.selectedNetwork
	token := o.selectedToken
	o.mu.Unlock()
	if !session.Connected() {
		return
	}
	go o.refreshBalance(ctx, session.Handle, session.Address, network, token)
}

func (o *Orchestrator) refreshBalance(ctx context.Context, handle *provider.Handle, address string, network unlock.Network, token unlock.Token) {
	o.mu.Lock()
	if o.session.Connected() && o.session.Address == address {
		o.session.LastKnownBalance = BalanceLoading
	}
	o.mu.Unlock()

	display := o.oracle.FetchTokenBalance(ctx, handle.Provider, address, network, token)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session.Connected() && o.session.Address == address {
		o.session.LastKnownBalance = display
	}
}

// Pay drives one payment attempt through chain alignment, signing and
// submission. Duplicate activations while an attempt is in flight are
// rejected before any header is constructed; the guard is cleared whatever
// the outcome.
func (o *Orchestrator) Pay(ctx context.Context) error {
	if !o.inFlight.CompareAndSwap(false, true) {
		o.emit(Event{Level: EventInfo, Message: "A payment is already in progress."})
		return unlock.ErrPaymentInFlight
	}
	defer o.inFlight.Store(false)

	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return errors.New("flow: dialog is not open")
	}
	session := o.session
	if !session.Connected() {
		o.mu.Unlock()
		o.emit(Event{Level: EventError, Message: "Please connect your wallet first."})
		return unlock.ErrWalletNotConnected
	}
	network := o.selectedNetwork
	token := o.selectedToken
	resource := o.resource
	terms := o.terms
	serverTyped := o.serverTyped
	o.state = StateNetworkSwitching
	o.mu.Unlock()

	desc, err := unlock.GetNetworkConfig(network)
	if err != nil {
		return o.failAttempt(err, "Unsupported network selected.")
	}

	if err := provider.EnsureChain(ctx, session.Handle.Provider, desc); err != nil {
		if errors.Is(err, unlock.ErrUserRejected) {
			return o.declineAttempt(err, "Network switch was declined.")
		}
		return o.failAttempt(err, "Could not switch the wallet network.")
	}
	o.mu.Lock()
	if o.session.Connected() {
		o.session.ConnectedNetwork = network
	}
	o.mu.Unlock()

	// Terms issued for another network are invalid and must never be
	// signed; re-fetch before deriving any EIP-712 data.
	if terms == nil || terms.Network != network {
		freshTerms, freshTyped, err := o.fetchTerms(ctx, network, token, resource)
		if err != nil {
			return o.failAttempt(err, "Could not load payment terms.")
		}
		terms = &freshTerms
		serverTyped = freshTyped
		o.mu.Lock()
		o.terms = terms
		o.serverTyped = serverTyped
		o.mu.Unlock()
	}

	// The wallet's active account may have changed since connection;
	// the authorization must name whoever is active right now.
	address, err := provider.CurrentAccount(ctx, session.Handle.Provider)
	if err != nil {
		return o.failAttempt(err, "Wallet has no active account.")
	}
	o.mu.Lock()
	if o.session.Connected() {
		o.session.Address = address
	}
	o.mu.Unlock()

	var typed unlock.TypedAuthorization
	if serverTyped != nil {
		typed = eip3009.MergeServerTerms(*serverTyped, address)
	} else {
		typed, err = eip3009.BuildAuthorization(*terms, token, address, o.window)
		if err != nil {
			return o.failAttempt(err, "Could not prepare the payment authorization.")
		}
	}

	o.setStateIfOpen(StateSigning)
	o.rec.IncCounter(metrics.CounterPaymentAttempt, netLabels(network))

	signed, err := o.signer.Sign(ctx, session.Handle, session.Kind, network, typed)
	if err != nil {
		if errors.Is(err, unlock.ErrUserRejected) {
			return o.declineAttempt(err, "Signature declined — you can retry when ready.")
		}
		o.rec.IncCounter(metrics.CounterPaymentFailure, netLabels(network))
		return o.failAttempt(err, "Could not obtain a wallet signature.")
	}

	o.setStateIfOpen(StateSubmitting)
	start := time.Now()
	unlockedURL, err := o.submit(ctx, signed, *terms, network)
	o.rec.ObserveLatency(metrics.LatencySubmit, time.Since(start), netLabels(network))
	if err != nil {
		o.rec.IncCounter(metrics.CounterPaymentFailure, netLabels(network))
		return o.failAttempt(err, "Payment was not accepted — please try again.")
	}

	// Keep the released URL even when Close() raced the submission; only
	// the visible state respects the closed dialog.
	o.mu.Lock()
	if o.state != StateIdle {
		o.state = StateUnlocked
	}
	o.unlockedURL = unlockedURL
	o.mu.Unlock()

	o.rec.IncCounter(metrics.CounterPaymentSuccess, netLabels(network))
	o.emit(Event{Level: EventSuccess, Message: "Payment successful! Content unlocked."})

	if o.opener != nil {
		if err := o.opener.OpenURL(unlockedURL); err != nil {
			o.log.Warn("could not open unlocked url", map[string]any{
				"url":   unlockedURL,
				"error": err.Error(),
			})
			o.emit(Event{Level: EventInfo, Message: "Pop-up blocked — use the link to open your content."})
		}
	}
	return nil
}

// failAttempt surfaces an error outcome: the attempt is over but the wallet
// context is kept so the user can retry from WalletPending.
func (o *Orchestrator) failAttempt(err error, message string) error {
	o.log.Error("payment attempt failed", map[string]any{"error": err.Error()})
	o.setStateIfOpen(StateWalletPending)
	o.emit(Event{Level: EventError, Message: message, Err: err})
	return err
}

// declineAttempt handles a user rejection: an expected choice, not an error.
func (o *Orchestrator) declineAttempt(err error, message string) error {
	o.log.Info("payment attempt declined by user", map[string]any{"error": err.Error()})
	o.setStateIfOpen(StateWalletPending)
	o.emit(Event{Level: EventInfo, Message: message, Err: err})
	return err
}

// setStateIfOpen transitions unless the dialog was closed meanwhile.
func (o *Orchestrator) setStateIfOpen(state State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		o.state = state
	}
}

func (o *Orchestrator) emit(event Event) {
	if o.events != nil {
		o.events(event)
	}
}

func netLabels(network unlock.Network) map[string]string {
	return map[string]string{"network": string(network)}
}
