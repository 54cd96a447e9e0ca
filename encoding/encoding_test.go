package encoding

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	unlock "github.com/copus-io/unlock-go"
)

const usdtContract = "0x779ded0c9e1022225f8e0630b35a9b54be713736"

func signedFixture() unlock.SignedAuthorization {
	return unlock.SignedAuthorization{
		Authorization: unlock.Authorization{
			From:        "0x1111111111111111111111111111111111111111",
			To:          "0x2222222222222222222222222222222222222222",
			Value:       "10000",
			ValidAfter:  1700000000,
			ValidBefore: 1700003600,
			Nonce:       "0x" + strings.Repeat("ab", 32),
		},
		Signature: unlock.Signature{
			V: 27,
			R: "0x" + strings.Repeat("11", 32),
			S: "0x" + strings.Repeat("22", 32),
		},
	}
}

func TestEncodeHeaderShape(t *testing.T) {
	header, err := EncodeHeader(signedFixture(), unlock.NetworkXLayer, usdtContract)
	if err != nil {
		t.Fatalf("EncodeHeader() error = %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		t.Fatalf("header is not standard base64: %v", err)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(decoded, &wire); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if string(wire["x402Version"]) != "1" {
		t.Errorf("x402Version = %s, want 1", wire["x402Version"])
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(wire["payload"], &payload); err != nil {
		t.Fatalf("payload is not an object: %v", err)
	}
	for _, field := range []string{"network", "asset", "scheme", "from", "to", "value", "validAfter", "validBefore", "nonce", "signature"} {
		if _, ok := payload[field]; !ok {
			t.Errorf("payload missing field %q", field)
		}
	}
	if string(payload["scheme"]) != `"exact"` {
		t.Errorf("scheme = %s, want exact", payload["scheme"])
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	signed := signedFixture()
	header, err := EncodeHeader(signed, unlock.NetworkXLayer, usdtContract)
	if err != nil {
		t.Fatalf("EncodeHeader() error = %v", err)
	}

	envelope, err := DecodeHeader(header)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if envelope.X402Version != unlock.X402Version {
		t.Errorf("X402Version = %d", envelope.X402Version)
	}
	payload := envelope.Payload
	if payload.Network != unlock.NetworkXLayer || payload.Asset != usdtContract {
		t.Errorf("network/asset = %s/%s", payload.Network, payload.Asset)
	}
	if payload.From != signed.From || payload.To != signed.To || payload.Value != signed.Value {
		t.Error("authorization fields did not survive the round trip")
	}
	if payload.Nonce != signed.Nonce {
		t.Errorf("Nonce = %s", payload.Nonce)
	}
	if payload.Signature != signed.Signature {
		t.Errorf("Signature = %+v", payload.Signature)
	}
}

func TestHeaderRoundTripZeroValidAfter(t *testing.T) {
	// Some gateways issue authorizations valid from the epoch. The window
	// constraint is validBefore > validAfter, so validAfter == 0 must encode.
	signed := signedFixture()
	signed.ValidAfter = 0

	header, err := EncodeHeader(signed, unlock.NetworkXLayer, usdtContract)
	if err != nil {
		t.Fatalf("EncodeHeader() error = %v", err)
	}
	envelope, err := DecodeHeader(header)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if envelope.Payload.ValidAfter != 0 {
		t.Errorf("ValidAfter = %d, want 0", envelope.Payload.ValidAfter)
	}
	if envelope.Payload.ValidBefore != signed.ValidBefore {
		t.Errorf("ValidBefore = %d, want %d", envelope.Payload.ValidBefore, signed.ValidBefore)
	}
}

func TestEncodeHeaderRejectsIncompleteAuthorization(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*unlock.SignedAuthorization)
	}{
		{"MissingFrom", func(s *unlock.SignedAuthorization) { s.From = "" }},
		{"BadRecipient", func(s *unlock.SignedAuthorization) { s.To = "not-an-address" }},
		{"NonNumericValue", func(s *unlock.SignedAuthorization) { s.Value = "ten" }},
		{"InvertedWindow", func(s *unlock.SignedAuthorization) { s.ValidBefore = s.ValidAfter - 1 }},
		{"MissingNonce", func(s *unlock.SignedAuthorization) { s.Nonce = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := signedFixture()
			tt.mutate(&signed)
			if _, err := EncodeHeader(signed, unlock.NetworkXLayer, usdtContract); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDecodeHeaderMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"NotBase64", "!!not-base64!!"},
		{"NotJSON", base64.StdEncoding.EncodeToString([]byte("plain text"))},
		{"WrongShape", base64.StdEncoding.EncodeToString([]byte(`{"x402Version":1,"payload":{}}`))},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeader(tt.input)
			if tt.name == "Empty" {
				// An empty string is valid base64 of zero bytes; it fails
				// at the JSON stage instead.
				if err == nil {
					t.Error("expected error for empty header")
				}
				return
			}
			if !errors.Is(err, unlock.ErrMalformedHeader) {
				t.Errorf("error = %v, want ErrMalformedHeader", err)
			}
		})
	}
}
