// Package provider models browser-injected wallet providers behind the
// minimal EIP-1193 capability surface: a single request(method, params) call.
// It also resolves which injected provider actually belongs to a requested
// wallet kind, which matters because extensions overwrite and wrap each
// other's shared injection point.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Provider is the minimal EIP-1193 wallet capability. Every call may suspend
// indefinitely while the user decides on a wallet prompt; pass a context the
// caller controls.
type Provider interface {
	Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
}

// RPCError is the structured error wallets return from request calls.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// RPCCode extracts the wallet error code from err, or 0 if err is not an
// RPCError.
func RPCCode(err error) int {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

// Kind identifies a wallet extension family.
type Kind string

const (
	// KindMetaMask is the MetaMask extension.
	KindMetaMask Kind = "metamask"

	// KindCoinbase is the Coinbase Wallet extension.
	KindCoinbase Kind = "coinbase"

	// KindOKX is the OKX Wallet extension.
	KindOKX Kind = "okx"
)

// Flags are the identity bits a provider advertises. Extensions are known to
// spoof each other's flags, so a positive flag alone does not identify a
// provider when several extensions are installed.
type Flags struct {
	IsMetaMask       bool `json:"isMetaMask"`
	IsOKXWallet      bool `json:"isOkxWallet"`
	IsCoinbaseWallet bool `json:"isCoinbaseWallet"`
}

// Matches reports whether the flag for the given kind is set.
func (f Flags) Matches(kind Kind) bool {
	switch kind {
	case KindMetaMask:
		return f.IsMetaMask
	case KindCoinbase:
		return f.IsCoinbaseWallet
	case KindOKX:
		return f.IsOKXWallet
	default:
		return false
	}
}

// Exclusive reports whether the flag for the given kind is set and the flags
// for every other kind are false. This is the safe identity test when
// multiple providers coexist.
func (f Flags) Exclusive(kind Kind) bool {
	if !f.Matches(kind) {
		return false
	}
	set := 0
	for _, b := range []bool{f.IsMetaMask, f.IsOKXWallet, f.IsCoinbaseWallet} {
		if b {
			set++
		}
	}
	return set == 1
}

// Handle is a located provider together with its advertised identity.
type Handle struct {
	Provider Provider
	Flags    Flags
}

// String result helper: wallet methods like eth_chainId and personal_sign
// return a bare JSON string.
func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("unexpected provider result: %w", err)
	}
	return s, nil
}

// decodeStrings decodes a JSON array of strings (eth_accounts).
func decodeStrings(raw json.RawMessage) ([]string, error) {
	var s []string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unexpected provider result: %w", err)
	}
	return s, nil
}
