// Package encoding serializes payment envelopes for HTTP transport.
// An envelope is JSON wrapped in standard base64 so it survives as a single
// header value; encode then decode is lossless field for field.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	unlock "github.com/copus-io/unlock-go"
)

var validate = validator.New()

// EncodeHeader builds the X-PAYMENT header value for one signed
// authorization: the x402 envelope as base64-encoded JSON.
func EncodeHeader(signed unlock.SignedAuthorization, network unlock.Network, asset string) (string, error) {
	envelope := unlock.PaymentHeaderEnvelope{
		X402Version: unlock.X402Version,
		Payload: unlock.HeaderPayload{
			Network:     network,
			Asset:       asset,
			Scheme:      unlock.Scheme,
			From:        signed.From,
			To:          signed.To,
			Value:       signed.Value,
			ValidAfter:  signed.ValidAfter,
			ValidBefore: signed.ValidBefore,
			Nonce:       signed.Nonce,
			Signature:   signed.Signature,
		},
	}

	if err := validate.Struct(envelope); err != nil {
		return "", fmt.Errorf("invalid payment envelope: %w", err)
	}

	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment envelope: %w", err)
	}
	return base64.StdEncoding.EncodeToString(envelopeJSON), nil
}

// DecodeHeader parses an X-PAYMENT header value back into the envelope.
// It exists for verification and debugging, never on the payment hot path.
func DecodeHeader(encoded string) (unlock.PaymentHeaderEnvelope, error) {
	var envelope unlock.PaymentHeaderEnvelope

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return envelope, fmt.Errorf("%w: invalid base64: %w", unlock.ErrMalformedHeader, err)
	}

	if err := json.Unmarshal(decoded, &envelope); err != nil {
		return envelope, fmt.Errorf("%w: invalid JSON: %w", unlock.ErrMalformedHeader, err)
	}

	if err := validate.Struct(envelope); err != nil {
		return envelope, fmt.Errorf("%w: %w", unlock.ErrMalformedHeader, err)
	}

	return envelope, nil
}
