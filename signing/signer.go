// Package signing obtains wallet signatures over ERC-3009 authorizations.
// Strategies are tried in order with isolated error handling: the OKX direct
// helper is a fast path whose failures fall through to the generic
// eth_signTypedData_v4 path, so the generic path's correctness never depends
// on the specialized one.
package signing

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	unlock "github.com/copus-io/unlock-go"
	"github.com/copus-io/unlock-go/eip3009"
	"github.com/copus-io/unlock-go/logger"
	"github.com/copus-io/unlock-go/provider"
)

// okxSignMethod is the dedicated ERC-3009 signing helper the OKX extension
// exposes on X Layer. It is a UX optimization only; any failure falls back
// to the generic typed-data path.
const okxSignMethod = "okx_signTransferWithAuthorization"

// rsComponentPattern validates one 32-byte signature component in hex.
var rsComponentPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// strategy is one way of asking a wallet for a signature. applies gates the
// strategy; sign returns the raw 65-byte hex signature.
type strategy struct {
	name    string
	applies func(kind provider.Kind, network unlock.Network) bool
	sign    func(ctx context.Context, p provider.Provider, auth unlock.TypedAuthorization) (string, error)
}

// Adapter drives the signing strategies and parses the result.
type Adapter struct {
	log        logger.Logger
	strategies []strategy
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// NewAdapter creates a signing adapter with the standard strategy order:
// the OKX direct helper first, then the generic typed-data path.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		log: logger.NoopLogger{},
		strategies: []strategy{
			{name: "okx-direct", applies: okxDirectApplies, sign: okxDirectSign},
			{name: "typed-data", applies: alwaysApplies, sign: typedDataSign},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sign obtains a signature over the authorization from the wallet. The
// authorization's from field must already hold the live wallet address.
// Failures map to user rejection (4001), unsupported chain (4902) or a
// signing error; a malformed signature is never returned to the caller.
func (a *Adapter) Sign(ctx context.Context, h *provider.Handle, kind provider.Kind, network unlock.Network, auth unlock.TypedAuthorization) (unlock.SignedAuthorization, error) {
	if err := eip3009.Validate(auth); err != nil {
		return unlock.SignedAuthorization{}, err
	}

	var lastErr error
	for _, s := range a.strategies {
		if !s.applies(kind, network) {
			continue
		}
		raw, err := s.sign(ctx, h.Provider, auth)
		if err == nil {
			sig, parseErr := ParseSignature(raw)
			if parseErr == nil {
				return unlock.SignedAuthorization{
					Authorization: auth.Message,
					Signature:     sig,
				}, nil
			}
			// A strategy that returned garbage failed just as surely as
			// one that errored; the next strategy may still produce a
			// usable signature.
			err = parseErr
		}
		lastErr = err
		a.log.Debug("signing strategy failed", map[string]any{
			"strategy": s.name,
			"error":    err.Error(),
		})
	}
	return unlock.SignedAuthorization{}, classifySignError(lastErr)
}

func alwaysApplies(provider.Kind, unlock.Network) bool { return true }

func okxDirectApplies(kind provider.Kind, network unlock.Network) bool {
	return kind == provider.KindOKX && network == unlock.NetworkXLayer
}

// okxDirectSign invokes the OKX extension's ERC-3009 helper with the bare
// authorization message.
func okxDirectSign(ctx context.Context, p provider.Provider, auth unlock.TypedAuthorization) (string, error) {
	raw, err := p.Request(ctx, okxSignMethod, auth.Message.From, auth)
	if err != nil {
		return "", err
	}
	return decodeSignatureResult(raw)
}

// typedDataSign serializes the full EIP-712 payload and requests a standard
// typed-data signature.
func typedDataSign(ctx context.Context, p provider.Provider, auth unlock.TypedAuthorization) (string, error) {
	typed, err := eip3009.TypedData(auth)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(typed)
	if err != nil {
		return "", fmt.Errorf("failed to serialize typed data: %w", err)
	}

	raw, err := p.Request(ctx, "eth_signTypedData_v4", auth.Message.From, string(payload))
	if err != nil {
		return "", err
	}
	return decodeSignatureResult(raw)
}

func decodeSignatureResult(raw json.RawMessage) (string, error) {
	var sig string
	if err := json.Unmarshal(raw, &sig); err != nil {
		return "", fmt.Errorf("unexpected signature result: %w", err)
	}
	return sig, nil
}

// ParseSignature splits a 65-byte hex signature into its components:
// r = bytes 0..32, s = bytes 32..64, v = byte 64. The components are
// validated and the signature is reconstructed from them; any mismatch with
// the wallet's original output is a parsing bug and fails loudly rather
// than producing a proof that silently fails on-chain.
func ParseSignature(sigHex string) (unlock.Signature, error) {
	trimmed := strings.TrimPrefix(sigHex, "0x")
	original, err := hex.DecodeString(trimmed)
	if err != nil {
		return unlock.Signature{}, NewSigningError("signature is not valid hex", err)
	}
	if len(original) != 65 {
		return unlock.Signature{}, NewSigningError(fmt.Sprintf("signature is %d bytes, want 65", len(original)), nil)
	}

	r := trimmed[0:64]
	s := trimmed[64:128]
	v := original[64]

	if !rsComponentPattern.MatchString(r) || !rsComponentPattern.MatchString(s) {
		return unlock.Signature{}, NewSigningError("signature component is not 32 bytes of hex", nil)
	}
	switch v {
	case 0, 1, 27, 28:
	default:
		return unlock.Signature{}, NewSigningError(fmt.Sprintf("invalid recovery value %d", v), nil)
	}

	sig := unlock.Signature{V: v, R: "0x" + r, S: "0x" + s}

	reconstructed, err := ReconstructSignature(sig)
	if err != nil {
		return unlock.Signature{}, err
	}
	if !bytes.Equal(reconstructed, original) {
		return unlock.Signature{}, NewSigningError("reconstructed signature does not match wallet output", nil)
	}

	return sig, nil
}

// ReconstructSignature reassembles the 65-byte signature r || s || v from
// parsed components.
func ReconstructSignature(sig unlock.Signature) ([]byte, error) {
	r, err := hex.DecodeString(strings.TrimPrefix(sig.R, "0x"))
	if err != nil || len(r) != 32 {
		return nil, NewSigningError("invalid r component", err)
	}
	s, err := hex.DecodeString(strings.TrimPrefix(sig.S, "0x"))
	if err != nil || len(s) != 32 {
		return nil, NewSigningError("invalid s component", err)
	}
	return append(append(r, s...), sig.V), nil
}

// NewSigningError wraps a cryptographic-integrity failure. These are always
// fatal for the attempt and never downgraded.
func NewSigningError(message string, err error) error {
	cause := unlock.ErrSigningFailed
	if err != nil {
		cause = fmt.Errorf("%w: %w", unlock.ErrSigningFailed, err)
	}
	return unlock.NewPaymentError(unlock.ErrCodeSigningFailed, message, cause)
}

// classifySignError maps wallet errors from the final strategy to flow
// sentinels so the orchestrator can branch on them.
func classifySignError(err error) error {
	if err == nil {
		return unlock.NewPaymentError(unlock.ErrCodeSigningFailed, "no signing strategy applied", unlock.ErrSigningFailed)
	}
	if mapped := provider.MapRPCError(err); mapped != err {
		return mapped
	}
	var pe *unlock.PaymentError
	if errors.As(err, &pe) {
		return err
	}
	return unlock.NewPaymentError(unlock.ErrCodeSigningFailed, "wallet signing failed", fmt.Errorf("%w: %w", unlock.ErrSigningFailed, err))
}
