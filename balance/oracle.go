// Package balance reads stablecoin balances through the wallet provider.
// The oracle is deliberately total: balance display decorates the payment
// dialog and must never block or break the rest of the flow, so every
// failure resolves to "0.00" with the cause logged.
package balance

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	unlock "github.com/copus-io/unlock-go"
	"github.com/copus-io/unlock-go/logger"
	"github.com/copus-io/unlock-go/provider"
)

// zeroBalance is returned for every unresolvable read.
const zeroBalance = "0.00"

// balanceOfSelector is the 4-byte selector of balanceOf(address), 0x70a08231.
var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// callParams is the eth_call transaction object.
type callParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// Oracle performs read-only balance lookups against the registry's token
// contracts. It holds no wallet state.
type Oracle struct {
	tier unlock.Tier
	log  logger.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithTier overrides the deployment tier (defaults to the environment tier).
func WithTier(tier unlock.Tier) Option {
	return func(o *Oracle) { o.tier = tier }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Oracle) { o.log = log }
}

// NewOracle creates a balance oracle.
func NewOracle(opts ...Option) *Oracle {
	o := &Oracle{
		tier: unlock.CurrentTier(),
		log:  logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FetchTokenBalance resolves the address's token balance on the network as a
// 2-decimal display string. It never returns an error: chain-switch
// failures, absent contracts, RPC errors and unparsable results all log the
// cause and yield "0.00".
func (o *Oracle) FetchTokenBalance(ctx context.Context, p provider.Provider, address string, network unlock.Network, token unlock.Token) string {
	desc, err := unlock.GetNetworkConfig(network)
	if err != nil {
		o.log.Warn("balance: unsupported network", map[string]any{"network": network})
		return zeroBalance
	}

	if err := provider.EnsureChain(ctx, p, desc); err != nil {
		o.log.Warn("balance: chain switch failed", map[string]any{
			"network": network,
			"error":   err.Error(),
		})
		return zeroBalance
	}

	contract, ok := unlock.GetTokenContract(network, token, o.tier)
	if !ok {
		o.log.Debug("balance: token not deployed", map[string]any{
			"network": network,
			"token":   token,
			"tier":    o.tier,
		})
		return zeroBalance
	}

	raw, err := p.Request(ctx, "eth_call", callParams{
		To:   contract,
		Data: encodeBalanceOf(address),
	}, "latest")
	if err != nil {
		o.log.Warn("balance: eth_call failed", map[string]any{
			"network":  network,
			"contract": contract,
			"error":    err.Error(),
		})
		return zeroBalance
	}

	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		o.log.Warn("balance: unexpected eth_call result", map[string]any{"error": err.Error()})
		return zeroBalance
	}

	value := parseHexAmount(result)
	return unlock.FormatAmount(value, desc.TokenDecimals)
}

// encodeBalanceOf builds the balanceOf(address) call data: the 4-byte
// selector followed by the address left-padded to 32 bytes.
func encodeBalanceOf(address string) string {
	padded := common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)
	data := append(append([]byte{}, balanceOfSelector...), padded...)
	return "0x" + common.Bytes2Hex(data)
}

// parseHexAmount parses an eth_call hex result as an unsigned integer.
// Empty and "0x" results mean zero, not an error.
func parseHexAmount(result string) *big.Int {
	trimmed := strings.TrimPrefix(strings.TrimSpace(result), "0x")
	if trimmed == "" {
		return new(big.Int)
	}
	value, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return new(big.Int)
	}
	return value
}
