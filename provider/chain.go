package provider

import (
	"context"
	"strconv"
	"strings"

	unlock "github.com/copus-io/unlock-go"
)

// switchChainParams is the argument to wallet_switchEthereumChain.
type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// addChainParams is the argument to wallet_addEthereumChain (EIP-3085).
type addChainParams struct {
	ChainID           string                `json:"chainId"`
	ChainName         string                `json:"chainName"`
	RPCURLs           []string              `json:"rpcUrls"`
	BlockExplorerURLs []string              `json:"blockExplorerUrls"`
	NativeCurrency    unlock.NativeCurrency `json:"nativeCurrency"`
}

// ChainID reads the provider's active chain id.
func ChainID(ctx context.Context, p Provider) (uint64, error) {
	raw, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	hex, err := decodeString(raw)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(hex, "0x"), 16, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EnsureChain switches the wallet's active chain to the descriptor's chain.
// If the wallet reports the chain as unknown (code 4902) the chain is added
// from the registry metadata and the switch is retried exactly once. A user
// rejection or a second failure is returned to the caller.
func EnsureChain(ctx context.Context, p Provider, desc unlock.NetworkDescriptor) error {
	current, err := ChainID(ctx, p)
	if err == nil && current == desc.ChainID {
		return nil
	}

	_, err = p.Request(ctx, "wallet_switchEthereumChain", switchChainParams{ChainID: desc.ChainIDHex})
	if err == nil {
		return nil
	}
	if RPCCode(err) != unlock.ProviderCodeChainUnknown {
		return MapRPCError(err)
	}

	_, err = p.Request(ctx, "wallet_addEthereumChain", addChainParams{
		ChainID:           desc.ChainIDHex,
		ChainName:         desc.Name,
		RPCURLs:           desc.RPCURLs,
		BlockExplorerURLs: desc.BlockExplorerURLs,
		NativeCurrency:    desc.NativeCurrency,
	})
	if err != nil {
		return MapRPCError(err)
	}

	if _, err := p.Request(ctx, "wallet_switchEthereumChain", switchChainParams{ChainID: desc.ChainIDHex}); err != nil {
		return MapRPCError(err)
	}
	return nil
}

// RequestAccounts prompts for wallet connection and returns the active
// account. The prompt and the follow-up read are separate calls because some
// wallets resolve eth_requestAccounts before the selection settles.
func RequestAccounts(ctx context.Context, p Provider) (string, error) {
	if _, err := p.Request(ctx, "eth_requestAccounts"); err != nil {
		return "", MapRPCError(err)
	}
	return CurrentAccount(ctx, p)
}

// CurrentAccount re-reads the wallet's active account. Callers must use this
// immediately before signing: the active account can change at any time
// between connection and payment.
func CurrentAccount(ctx context.Context, p Provider) (string, error) {
	raw, err := p.Request(ctx, "eth_accounts")
	if err != nil {
		return "", MapRPCError(err)
	}
	accounts, err := decodeStrings(raw)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", unlock.ErrNoAccount
	}
	return accounts[0], nil
}

// MapRPCError converts well-known wallet error codes into flow sentinels so
// callers can branch with errors.Is. Other errors pass through unchanged.
func MapRPCError(err error) error {
	switch RPCCode(err) {
	case unlock.ProviderCodeUserRejected:
		return unlock.NewPaymentError(unlock.ErrCodeUserRejected, "request rejected in wallet", unlock.ErrUserRejected).
			WithDetails("cause", err.Error())
	case unlock.ProviderCodeChainUnknown:
		return unlock.NewPaymentError(unlock.ErrCodeChainUnknown, "chain not registered in wallet", unlock.ErrChainUnknown).
			WithDetails("cause", err.Error())
	default:
		return err
	}
}
