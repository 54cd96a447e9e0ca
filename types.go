package unlock

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Scheme is the only payment scheme this client produces.
const Scheme = "exact"

// X402Version is the protocol version carried in every payment envelope.
const X402Version = 1

// PaymentTerms are the server-issued terms for one unlock. They are
// short-lived: whenever the selected network changes, terms must be
// re-fetched, and terms for a different network must never be signed.
type PaymentTerms struct {
	// PayTo is the payment recipient address.
	PayTo string `json:"payTo" validate:"required,eth_addr"`

	// Asset is the token contract address the payment is denominated in.
	Asset string `json:"asset" validate:"required,eth_addr"`

	// Amount is the price in the token's smallest unit, as a base-10 integer string.
	Amount string `json:"amount" validate:"required,number"`

	// Network is the network the terms were issued for.
	Network Network `json:"network" validate:"required"`

	// Resource is the URL the unlock request is issued against.
	Resource string `json:"resource" validate:"required,url"`
}

// Domain is the EIP-712 domain the authorization is signed under. The
// verifying contract is the token contract, not the payment recipient.
type Domain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           uint64 `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// Authorization is the ERC-3009 TransferWithAuthorization message body.
type Authorization struct {
	// From is the payer address, re-read from the wallet at signing time.
	From string `json:"from"`

	// To is the payment recipient.
	To string `json:"to"`

	// Value is the amount in smallest units, base-10.
	Value string `json:"value"`

	// ValidAfter is the unix second from which the authorization is valid.
	ValidAfter int64 `json:"validAfter"`

	// ValidBefore is the unix second at which the authorization expires.
	ValidBefore int64 `json:"validBefore"`

	// Nonce is a fresh random 32-byte value, 0x-prefixed hex, never reused.
	Nonce string `json:"nonce"`
}

// TypedAuthorization pairs an authorization message with its signing domain.
type TypedAuthorization struct {
	Domain  Domain        `json:"domain"`
	Message Authorization `json:"message"`
}

// Signature holds the parsed ECDSA signature components. R and S are
// 0x-prefixed 32-byte hex strings and V is 0, 1, 27 or 28.
type Signature struct {
	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`
}

// SignedAuthorization is an authorization plus the wallet's signature over it.
type SignedAuthorization struct {
	Authorization
	Signature Signature `json:"signature"`
}

// HeaderPayload is the inner payload of the X-PAYMENT envelope.
type HeaderPayload struct {
	Network     Network   `json:"network" validate:"required"`
	Asset       string    `json:"asset" validate:"required,eth_addr"`
	Scheme      string    `json:"scheme" validate:"required"`
	From        string    `json:"from" validate:"required,eth_addr"`
	To          string    `json:"to" validate:"required,eth_addr"`
	Value       string    `json:"value" validate:"required,number"`
	ValidAfter  int64     `json:"validAfter" validate:"min=0"`
	ValidBefore int64     `json:"validBefore" validate:"required,gtfield=ValidAfter"`
	Nonce       string    `json:"nonce" validate:"required"`
	Signature   Signature `json:"signature"`
}

// PaymentHeaderEnvelope is the transport shape of one payment attempt,
// base64-encoded into the X-PAYMENT header. Write-once per attempt.
type PaymentHeaderEnvelope struct {
	X402Version int           `json:"x402Version" validate:"required"`
	Payload     HeaderPayload `json:"payload"`
}

// ParseAtomicAmount parses an integer amount string in smallest units.
func ParseAtomicAmount(amount string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an atomic amount as a fixed 2-decimal display string.
// For example, "10000" with 6 decimals becomes "0.01".
func FormatAmount(atomic *big.Int, decimals int) string {
	if atomic == nil {
		return "0.00"
	}
	return decimal.NewFromBigInt(atomic, -int32(decimals)).StringFixed(2)
}
