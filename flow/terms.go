// Package flow drives the pay-per-unlock exchange end to end: it owns the
// dialog state machine, the wallet session, the payment-terms negotiation
// and the final unlock submission.
package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	unlock "github.com/copus-io/unlock-go"
)

var validate = validator.New()

// Terms endpoints by network family. X Layer unlocks are served by the OKX
// payment backend, Base networks by the Base one.
const (
	termsPathOKX  = "/client/payment/okx/getTargetUrl"
	termsPathBase = "/client/payment/base/getTargetUrl"
)

// termsPath selects the payment-terms endpoint for a network.
func termsPath(network unlock.Network) string {
	if network == unlock.NetworkXLayer {
		return termsPathOKX
	}
	return termsPathBase
}

// TermsVariant names the response shapes the payment-terms endpoints are
// known to produce. Every variant is handled explicitly; anything else is a
// parse error, never a silent guess.
type TermsVariant int

const (
	// VariantUnknown marks an unparseable response.
	VariantUnknown TermsVariant = iota

	// VariantTargetURL is a bare target URL string with no payment metadata.
	VariantTargetURL

	// VariantEIP712 is a server-built EIP-712 {domain, message} object.
	VariantEIP712

	// VariantLegacyAccepts is the legacy {accepts: [...]} x402 shape.
	VariantLegacyAccepts
)

// LegacyRequirement is one entry of the legacy accepts array.
type LegacyRequirement struct {
	PayTo             string `json:"payTo" validate:"required,eth_addr"`
	Asset             string `json:"asset" validate:"required,eth_addr"`
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required,number"`
}

// TermsResponse is the parsed discriminated union of a terms response.
type TermsResponse struct {
	Variant   TermsVariant
	TargetURL string
	EIP712    *unlock.TypedAuthorization
	Legacy    []LegacyRequirement
}

// flexUint64 tolerates JSON numbers, decimal strings and 0x-hex strings for
// the chain id, which varies by backend.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexUint64(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("chain id is neither number nor string")
	}
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = strings.TrimPrefix(s, "0x"), 16
	}
	n, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return fmt.Errorf("invalid chain id %q", s)
	}
	*f = flexUint64(n)
	return nil
}

// flexInt64 tolerates both JSON numbers and decimal strings for unix
// timestamps.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt64(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp is neither number nor string")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	*f = flexInt64(n)
	return nil
}

// flexString tolerates JSON numbers where a string amount is expected.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value is neither string nor number")
	}
	*f = flexString(n.String())
	return nil
}

// termsProbe is the tolerant decode target used to discriminate variants.
type termsProbe struct {
	Domain *struct {
		Name              string     `json:"name"`
		Version           string     `json:"version"`
		ChainID           flexUint64 `json:"chainId"`
		VerifyingContract string     `json:"verifyingContract"`
	} `json:"domain"`
	Message *struct {
		From        string     `json:"from"`
		To          string     `json:"to"`
		Value       flexString `json:"value"`
		ValidAfter  flexInt64  `json:"validAfter"`
		ValidBefore flexInt64  `json:"validBefore"`
		Nonce       string     `json:"nonce"`
	} `json:"message"`
	Accepts []LegacyRequirement `json:"accepts"`
}

// ParseTermsResponse discriminates and parses a payment-terms response body.
// New response shapes fail loudly here instead of being field-probed around.
func ParseTermsResponse(body []byte) (TermsResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return TermsResponse{}, termsError("empty terms response", nil)
	}

	// A bare JSON string is the target-URL variant.
	if strings.HasPrefix(trimmed, `"`) {
		var target string
		if err := json.Unmarshal([]byte(trimmed), &target); err != nil {
			return TermsResponse{}, termsError("malformed terms string", err)
		}
		return TermsResponse{Variant: VariantTargetURL, TargetURL: target}, nil
	}

	var probe termsProbe
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		// Some backends return the target URL as unquoted text.
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			return TermsResponse{Variant: VariantTargetURL, TargetURL: trimmed}, nil
		}
		return TermsResponse{}, termsError("malformed terms response", err)
	}

	switch {
	case probe.Domain != nil && probe.Message != nil:
		return TermsResponse{
			Variant: VariantEIP712,
			EIP712: &unlock.TypedAuthorization{
				Domain: unlock.Domain{
					Name:              probe.Domain.Name,
					Version:           probe.Domain.Version,
					ChainID:           uint64(probe.Domain.ChainID),
					VerifyingContract: probe.Domain.VerifyingContract,
				},
				Message: unlock.Authorization{
					From:        probe.Message.From,
					To:          probe.Message.To,
					Value:       string(probe.Message.Value),
					ValidAfter:  int64(probe.Message.ValidAfter),
					ValidBefore: int64(probe.Message.ValidBefore),
					Nonce:       probe.Message.Nonce,
				},
			},
		}, nil

	case len(probe.Accepts) > 0:
		return TermsResponse{Variant: VariantLegacyAccepts, Legacy: probe.Accepts}, nil

	default:
		return TermsResponse{}, termsError("unrecognized terms response shape", nil)
	}
}

// PaymentTerms derives the canonical PaymentTerms from a parsed response.
// The EIP-712 variant additionally yields the server's typed data, which is
// signed as-issued apart from the from field. The bare-URL variant carries
// no payee and is rejected: this client never substitutes a recipient the
// server did not name.
func (t TermsResponse) PaymentTerms(network unlock.Network, resource string) (unlock.PaymentTerms, *unlock.TypedAuthorization, error) {
	switch t.Variant {
	case VariantEIP712:
		terms := unlock.PaymentTerms{
			PayTo:    t.EIP712.Message.To,
			Asset:    t.EIP712.Domain.VerifyingContract,
			Amount:   t.EIP712.Message.Value,
			Network:  network,
			Resource: resource,
		}
		if err := validate.Struct(terms); err != nil {
			return unlock.PaymentTerms{}, nil, termsError("incomplete EIP-712 terms", err)
		}
		return terms, t.EIP712, nil

	case VariantLegacyAccepts:
		accept := t.Legacy[0]
		if err := validate.Struct(accept); err != nil {
			return unlock.PaymentTerms{}, nil, termsError("incomplete legacy terms", err)
		}
		terms := unlock.PaymentTerms{
			PayTo:    accept.PayTo,
			Asset:    accept.Asset,
			Amount:   accept.MaxAmountRequired,
			Network:  network,
			Resource: resource,
		}
		if err := validate.Struct(terms); err != nil {
			return unlock.PaymentTerms{}, nil, termsError("incomplete legacy terms", err)
		}
		return terms, nil, nil

	case VariantTargetURL:
		return unlock.PaymentTerms{}, nil, termsError("terms response names no payment recipient", nil)

	default:
		return unlock.PaymentTerms{}, nil, termsError("unrecognized terms response shape", nil)
	}
}

func termsError(message string, err error) error {
	cause := unlock.ErrPaymentTerms
	if err != nil {
		cause = fmt.Errorf("%w: %w", unlock.ErrPaymentTerms, err)
	}
	return unlock.NewPaymentError(unlock.ErrCodePaymentTerms, message, cause)
}
