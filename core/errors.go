package core

import "errors"

// Execution errors, classified by what the build loop should do with the
// offending transaction:
//
//   - recoverable: skip the transaction, keep its sender's descendants in
//     play (the condition can heal within the same block).
//   - invalidating: skip the transaction and everything that depends on it.
//   - anything else: the attempt itself is broken and must fail.
var (
	// ErrGasPoolExhausted is returned when the block gas pool cannot cover
	// a transaction's gas limit.
	ErrGasPoolExhausted = errors.New("core: gas pool exhausted")

	// ErrNonceTooLow is recoverable: a competing inclusion may already have
	// consumed the nonce.
	ErrNonceTooLow = errors.New("core: nonce too low")

	// ErrNonceTooHigh invalidates: the gap cannot close within this block
	// once the sender's earlier transaction failed.
	ErrNonceTooHigh = errors.New("core: nonce too high")

	// ErrInsufficientFunds invalidates the sender's chain of transactions.
	ErrInsufficientFunds = errors.New("core: insufficient funds for gas * price + value")

	// ErrFeeCapTooLow invalidates: the fee cap is below the block base fee.
	ErrFeeCapTooLow = errors.New("core: max fee per gas less than block base fee")

	// ErrBlobFeeCapTooLow invalidates: the blob fee cap is below the blob fee.
	ErrBlobFeeCapTooLow = errors.New("core: max fee per blob gas less than blob fee")

	// ErrIntrinsicGas invalidates: the gas limit cannot cover intrinsic cost.
	ErrIntrinsicGas = errors.New("core: intrinsic gas too low")

	// ErrSenderNoEOA invalidates: transactions from accounts with code are
	// rejected.
	ErrSenderNoEOA = errors.New("core: sender not an externally owned account")
)

// IsRecoverable reports whether the transaction may become valid later in
// the same block and should be skipped without cascading.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNonceTooLow)
}

// IsInvalidating reports whether the transaction is invalid in a way that
// also dooms every transaction depending on it.
func IsInvalidating(err error) bool {
	switch {
	case errors.Is(err, ErrNonceTooHigh),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrFeeCapTooLow),
		errors.Is(err, ErrBlobFeeCapTooLow),
		errors.Is(err, ErrIntrinsicGas),
		errors.Is(err, ErrSenderNoEOA):
		return true
	}
	return false
}
