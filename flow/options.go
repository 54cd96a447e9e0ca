package flow

import (
	"errors"
	"net/http"
	"time"

	unlock "github.com/copus-io/unlock-go"
	"github.com/copus-io/unlock-go/balance"
	"github.com/copus-io/unlock-go/logger"
	"github.com/copus-io/unlock-go/metrics"
	"github.com/copus-io/unlock-go/provider"
	"github.com/copus-io/unlock-go/signing"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// New creates an unlock orchestrator. apiBase is the payment backend origin
// and surface is the host's wallet injection snapshot.
func New(apiBase string, surface provider.Surface, opts ...Option) (*Orchestrator, error) {
	if apiBase == "" {
		return nil, errors.New("flow: api base URL is required")
	}

	o := &Orchestrator{
		apiBase:    apiBase,
		surface:    surface,
		httpClient: &http.Client{},
		tier:       unlock.CurrentTier(),
		window:     0, // builder applies its default
		log:        logger.NoopLogger{},
		rec:        metrics.NoopRecorder{},
		state:      StateIdle,
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.oracle == nil {
		o.oracle = balance.NewOracle(balance.WithTier(o.tier), balance.WithLogger(o.log))
	}
	if o.signer == nil {
		o.signer = signing.NewAdapter(signing.WithLogger(o.log))
	}

	return o, nil
}

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Orchestrator) error {
		if client == nil {
			return errors.New("flow: http client must not be nil")
		}
		o.httpClient = client
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) error {
		o.log = log
		return nil
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(o *Orchestrator) error {
		o.rec = rec
		return nil
	}
}

// WithTier overrides the deployment tier (defaults to the environment tier).
func WithTier(tier unlock.Tier) Option {
	return func(o *Orchestrator) error {
		o.tier = tier
		return nil
	}
}

// WithValidityWindow overrides the authorization validity window used when
// the client builds the EIP-712 data itself.
func WithValidityWindow(window time.Duration) Option {
	return func(o *Orchestrator) error {
		if window <= 0 {
			return errors.New("flow: validity window must be positive")
		}
		o.window = window
		return nil
	}
}

// WithTokenSource sets the bearer-token source for authenticated requests.
func WithTokenSource(source TokenSource) Option {
	return func(o *Orchestrator) error {
		o.tokenSource = source
		return nil
	}
}

// WithOpener sets the browsing-context opener for unlocked URLs.
func WithOpener(opener Opener) Option {
	return func(o *Orchestrator) error {
		o.opener = opener
		return nil
	}
}

// WithEventSink sets the toast-level notification sink.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) error {
		o.events = sink
		return nil
	}
}

// WithAuthMethod records the wallet kind the user last authenticated with;
// it steers the default network when the dialog opens.
func WithAuthMethod(method string) Option {
	return func(o *Orchestrator) error {
		o.authMethod = method
		return nil
	}
}

// WithBalanceOracle overrides the balance oracle.
func WithBalanceOracle(oracle *balance.Oracle) Option {
	return func(o *Orchestrator) error {
		o.oracle = oracle
		return nil
	}
}

// WithSigningAdapter overrides the signing adapter.
func WithSigningAdapter(adapter *signing.Adapter) Option {
	return func(o *Orchestrator) error {
		o.signer = adapter
		return nil
	}
}
