// Package eip3009 builds ERC-3009 TransferWithAuthorization messages as
// EIP-712 typed data. The builder produces the authorization; obtaining the
// wallet signature over it is the signing package's job.
package eip3009

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	unlock "github.com/copus-io/unlock-go"
)

// DefaultValidityWindow bounds how long a signed authorization stays
// executable. One hour is short enough to limit replay exposure and long
// enough to survive user hesitation at the wallet prompt.
const DefaultValidityWindow = time.Hour

// clockDriftAllowance is subtracted from validAfter so a client clock
// slightly ahead of the chain does not produce a not-yet-valid authorization.
const clockDriftAllowance = 10 * time.Second

// GenerateNonce returns a fresh cryptographically random 32-byte nonce as a
// 0x-prefixed hex string. Nonces are single-use: one per authorization.
func GenerateNonce() (string, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return "0x" + hex.EncodeToString(nonce[:]), nil
}

// BuildAuthorization constructs a TypedAuthorization for the given payment
// terms. The from address must be the wallet's active account re-read at
// call time, never a cached value. A non-positive window uses the default.
func BuildAuthorization(terms unlock.PaymentTerms, token unlock.Token, walletAddress string, window time.Duration) (unlock.TypedAuthorization, error) {
	desc, err := unlock.GetNetworkConfig(terms.Network)
	if err != nil {
		return unlock.TypedAuthorization{}, err
	}

	params, ok := unlock.GetDomainParams(terms.Network, token)
	if !ok {
		return unlock.TypedAuthorization{}, unlock.NewPaymentError(unlock.ErrCodeUnsupportedToken, "no signing domain for token", unlock.ErrUnsupportedToken).
			WithDetails("network", string(terms.Network)).
			WithDetails("token", string(token))
	}

	if _, err := unlock.ParseAtomicAmount(terms.Amount); err != nil {
		return unlock.TypedAuthorization{}, err
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return unlock.TypedAuthorization{}, err
	}

	if window <= 0 {
		window = DefaultValidityWindow
	}
	now := time.Now()

	return unlock.TypedAuthorization{
		Domain: unlock.Domain{
			Name:              params.Name,
			Version:           params.Version,
			ChainID:           desc.ChainID,
			VerifyingContract: terms.Asset,
		},
		Message: unlock.Authorization{
			From:        walletAddress,
			To:          terms.PayTo,
			Value:       terms.Amount,
			ValidAfter:  now.Add(-clockDriftAllowance).Unix(),
			ValidBefore: now.Add(window).Unix(),
			Nonce:       nonce,
		},
	}, nil
}

// MergeServerTerms applies the verified wallet address to EIP-712 data the
// payment server supplied natively. Only from is overwritten; to, value,
// nonce and the validity window stay exactly as the server issued them.
func MergeServerTerms(server unlock.TypedAuthorization, walletAddress string) unlock.TypedAuthorization {
	merged := server
	merged.Message.From = walletAddress
	return merged
}

// Validate checks the structural invariants of an authorization before it is
// offered for signing.
func Validate(auth unlock.TypedAuthorization) error {
	if auth.Message.ValidBefore <= auth.Message.ValidAfter {
		return unlock.NewPaymentError(unlock.ErrCodeSigningFailed, "authorization validity window is empty", unlock.ErrSigningFailed).
			WithDetails("validAfter", auth.Message.ValidAfter).
			WithDetails("validBefore", auth.Message.ValidBefore)
	}
	if len(auth.Message.Nonce) != 66 {
		return unlock.NewPaymentError(unlock.ErrCodeSigningFailed, "authorization nonce is not 32 bytes", unlock.ErrSigningFailed)
	}
	if _, err := unlock.ParseAtomicAmount(auth.Message.Value); err != nil {
		return err
	}
	return nil
}

// TypedData renders the authorization as the complete EIP-712 structure for
// eth_signTypedData_v4.
func TypedData(auth unlock.TypedAuthorization) (apitypes.TypedData, error) {
	value, err := unlock.ParseAtomicAmount(auth.Message.Value)
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              auth.Domain.Name,
			Version:           auth.Domain.Version,
			ChainId:           math.NewHexOrDecimal256(int64(auth.Domain.ChainID)),
			VerifyingContract: auth.Domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.Message.From,
			"to":          auth.Message.To,
			"value":       (*math.HexOrDecimal256)(value),
			"validAfter":  math.NewHexOrDecimal256(auth.Message.ValidAfter),
			"validBefore": math.NewHexOrDecimal256(auth.Message.ValidBefore),
			"nonce":       auth.Message.Nonce,
		},
	}, nil
}

// Digest computes the EIP-712 signing hash for the authorization:
// keccak256("\x19\x01" || domainSeparator || structHash).
func Digest(auth unlock.TypedAuthorization) ([]byte, error) {
	typed, err := TypedData(auth)
	if err != nil {
		return nil, err
	}
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return digest, nil
}
