package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	unlock "github.com/copus-io/unlock-go"
	"github.com/copus-io/unlock-go/encoding"
	"github.com/copus-io/unlock-go/metrics"
	"github.com/copus-io/unlock-go/retry"
)

const (
	headerPayment      = "X-PAYMENT"
	headerPaymentAsset = "X-PAYMENT-ASSET"
)

// fetchTerms retrieves payment terms for a resource on a network. The
// gateway path depends on the network family; the verifying contract and the
// token's EIP-712 domain name ride along as query parameters so the server
// can price in the right currency.
func (o *Orchestrator) fetchTerms(ctx context.Context, network unlock.Network, token unlock.Token, resource uuid.UUID) (unlock.PaymentTerms, *unlock.TypedAuthorization, error) {
	var none unlock.PaymentTerms

	contract, ok := unlock.GetTokenContract(network, token, o.tier)
	if !ok {
		return none, nil, unlock.NewPaymentError(unlock.ErrCodeUnsupportedToken, "token has no contract on this network", unlock.ErrUnsupportedToken).
			WithDetails("network", string(network)).
			WithDetails("token", string(token))
	}
	domain, ok := unlock.GetDomainParams(network, token)
	if !ok {
		return none, nil, unlock.NewPaymentError(unlock.ErrCodeUnsupportedToken, "token has no signing domain on this network", unlock.ErrUnsupportedToken).
			WithDetails("network", string(network)).
			WithDetails("token", string(token))
	}

	query := url.Values{}
	query.Set("uuid", resource.String())
	query.Set("name", domain.Name)
	query.Set("verifyingContract", contract)
	endpoint := o.apiBase + termsPath(network) + "?" + query.Encode()

	start := time.Now()
	result, err := retry.Do(ctx, retry.TermsConfig, retry.Transient, func() (httpResult, error) {
		return o.doGet(ctx, endpoint, nil)
	})
	o.rec.ObserveLatency(metrics.LatencyTerms, time.Since(start), netLabels(network))
	if err != nil {
		o.rec.IncCounter(metrics.CounterTermsError, netLabels(network))
		return none, nil, unlock.NewPaymentError(unlock.ErrCodeNetworkError, "payment terms request failed", err).
			WithDetails("endpoint", endpoint)
	}

	// 402 is the protocol's way of carrying terms; anything else outside
	// 2xx is a gateway failure.
	if result.status != http.StatusPaymentRequired && (result.status < 200 || result.status >= 300) {
		o.rec.IncCounter(metrics.CounterTermsError, netLabels(network))
		return none, nil, unlock.NewPaymentError(unlock.ErrCodePaymentTerms, fmt.Sprintf("terms endpoint returned status %d", result.status), unlock.ErrPaymentTerms).
			WithDetails("endpoint", endpoint)
	}

	parsed, err := ParseTermsResponse(result.body)
	if err != nil {
		o.rec.IncCounter(metrics.CounterTermsError, netLabels(network))
		return none, nil, err
	}
	terms, serverTyped, err := parsed.PaymentTerms(network, endpoint)
	if err != nil {
		o.rec.IncCounter(metrics.CounterTermsError, netLabels(network))
		return none, nil, err
	}

	o.rec.IncCounter(metrics.CounterTermsFetch, netLabels(network))
	o.log.Debug("payment terms resolved", map[string]any{
		"network": network,
		"payTo":   terms.PayTo,
		"amount":  terms.Amount,
	})
	return terms, serverTyped, nil
}

// submit presents the signed authorization to the resource endpoint and
// returns the unlocked content URL.
func (o *Orchestrator) submit(ctx context.Context, signed unlock.SignedAuthorization, terms unlock.PaymentTerms, network unlock.Network) (string, error) {
	header, err := encoding.EncodeHeader(signed, network, terms.Asset)
	if err != nil {
		return "", unlock.NewPaymentError(unlock.ErrCodeSubmission, "could not encode payment header", err)
	}

	result, err := o.doGet(ctx, terms.Resource, map[string]string{
		headerPayment:      header,
		headerPaymentAsset: terms.Asset,
	})
	if err != nil {
		return "", unlock.NewPaymentError(unlock.ErrCodeNetworkError, "unlock request failed", err).
			WithDetails("endpoint", terms.Resource)
	}
	if result.status < 200 || result.status >= 300 {
		return "", unlock.NewPaymentError(unlock.ErrCodeSubmission, fmt.Sprintf("payment rejected with status %d", result.status), unlock.ErrSubmission).
			WithDetails("endpoint", terms.Resource).
			WithDetails("body", string(result.body))
	}

	unlocked, err := extractUnlockedURL(result.body)
	if err != nil {
		return "", err
	}
	return unlocked, nil
}

type httpResult struct {
	status int
	body   []byte
}

// doGet issues one authenticated GET. A missing bearer token is a risk the
// server may reject, so it is logged but does not block the request.
func (o *Orchestrator) doGet(ctx context.Context, endpoint string, headers map[string]string) (httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return httpResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if o.tokenSource != nil {
		if token := o.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			o.log.Warn("no bearer token available, request may be rejected", map[string]any{
				"endpoint": endpoint,
			})
		}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return httpResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return httpResult{}, fmt.Errorf("read response: %w", err)
	}
	return httpResult{status: resp.StatusCode, body: body}, nil
}

// unlockEnvelope mirrors the gateway's nesting habits for the released URL.
type unlockEnvelope struct {
	Data      json.RawMessage `json:"data"`
	TargetURL json.RawMessage `json:"targetUrl"`
	URL       string          `json:"url"`
}

// extractUnlockedURL digs the released resource URL out of the unlock
// response. Gateways have shipped it as a bare string, under data, under
// targetUrl, and nested combinations of the three.
func extractUnlockedURL(body []byte) (string, error) {
	var direct string
	if err := json.Unmarshal(body, &direct); err == nil && direct != "" {
		return direct, nil
	}

	var envelope unlockEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", unlock.NewPaymentError(unlock.ErrCodeSubmission, "unlock response is not valid JSON", unlock.ErrSubmission)
	}
	// Probe order when several fields are present: data, then targetUrl,
	// then url.
	for _, nested := range []json.RawMessage{envelope.Data, envelope.TargetURL} {
		if len(nested) == 0 {
			continue
		}
		if found, err := extractUnlockedURL(nested); err == nil {
			return found, nil
		}
	}
	if envelope.URL != "" {
		return envelope.URL, nil
	}
	return "", unlock.NewPaymentError(unlock.ErrCodeSubmission, "unlock response carries no target url", unlock.ErrSubmission).
		WithDetails("body", string(body))
}
