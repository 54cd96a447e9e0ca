package unlock

import "errors"

// Sentinel errors for the unlock payment flow.

var (
	// ErrUnsupportedNetwork indicates a network outside the supported set.
	ErrUnsupportedNetwork = errors.New("unlock: unsupported network")

	// ErrUnsupportedToken indicates a token with no contract on the selected network.
	ErrUnsupportedToken = errors.New("unlock: unsupported token")

	// ErrProviderNotFound indicates the requested wallet extension is not installed.
	ErrProviderNotFound = errors.New("unlock: wallet provider not found")

	// ErrNoAccount indicates the wallet connected but no account is selected.
	ErrNoAccount = errors.New("unlock: no account selected in wallet")

	// ErrUserRejected indicates the user declined a wallet prompt (code 4001).
	ErrUserRejected = errors.New("unlock: request rejected by user")

	// ErrChainUnknown indicates the wallet does not know the requested chain (code 4902).
	ErrChainUnknown = errors.New("unlock: chain not registered in wallet")

	// ErrSigningFailed indicates the wallet returned a malformed or unparseable signature.
	ErrSigningFailed = errors.New("unlock: signing failed")

	// ErrPaymentTerms indicates the payment-terms endpoint failed or returned
	// terms that cannot be paid.
	ErrPaymentTerms = errors.New("unlock: invalid payment terms")

	// ErrStaleTerms indicates cached terms no longer match the selected network.
	ErrStaleTerms = errors.New("unlock: payment terms are stale for the selected network")

	// ErrSubmission indicates the unlock endpoint rejected the payment.
	ErrSubmission = errors.New("unlock: payment submission failed")

	// ErrPaymentInFlight indicates a payment attempt is already submitting.
	ErrPaymentInFlight = errors.New("unlock: payment already in progress")

	// ErrWalletNotConnected indicates a payment step ran without a wallet session.
	ErrWalletNotConnected = errors.New("unlock: wallet not connected")

	// ErrMalformedHeader indicates an X-PAYMENT header that cannot be decoded.
	ErrMalformedHeader = errors.New("unlock: malformed payment header")

	// ErrInvalidAmount indicates an amount string that is not a base-10 integer.
	ErrInvalidAmount = errors.New("unlock: invalid amount")
)

// Wallet provider error codes defined by EIP-1193 / EIP-3085.
const (
	// ProviderCodeUserRejected is returned when the user dismisses a prompt.
	ProviderCodeUserRejected = 4001

	// ProviderCodeChainUnknown is returned by wallet_switchEthereumChain when
	// the chain has not been added to the wallet.
	ProviderCodeChainUnknown = 4902
)

// ErrorCode classifies payment errors for programmatic handling.
type ErrorCode string

const (
	// ErrCodeUnsupportedNetwork indicates a static configuration gap.
	ErrCodeUnsupportedNetwork ErrorCode = "UNSUPPORTED_NETWORK"

	// ErrCodeUnsupportedToken indicates the token is absent on the network.
	ErrCodeUnsupportedToken ErrorCode = "UNSUPPORTED_TOKEN"

	// ErrCodeProviderNotFound indicates the wallet extension is missing.
	ErrCodeProviderNotFound ErrorCode = "PROVIDER_NOT_FOUND"

	// ErrCodeUserRejected indicates the user declined a wallet prompt.
	ErrCodeUserRejected ErrorCode = "USER_REJECTED"

	// ErrCodeChainUnknown indicates the chain must be added to the wallet.
	ErrCodeChainUnknown ErrorCode = "CHAIN_UNKNOWN"

	// ErrCodeSigningFailed indicates signature acquisition or parsing failed.
	ErrCodeSigningFailed ErrorCode = "SIGNING_FAILED"

	// ErrCodePaymentTerms indicates the terms fetch or parse failed.
	ErrCodePaymentTerms ErrorCode = "PAYMENT_TERMS"

	// ErrCodeSubmission indicates the unlock request was not accepted.
	ErrCodeSubmission ErrorCode = "SUBMISSION"

	// ErrCodeNetworkError indicates transport-level failure.
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
)

// PaymentError carries a classified error with context details.
type PaymentError struct {
	// Code is the error class for programmatic handling.
	Code ErrorCode

	// Message is the short, user-presentable description.
	Message string

	// Details holds additional context for logging; never shown verbatim.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails attaches a context value to the error.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the ErrorCode from err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
