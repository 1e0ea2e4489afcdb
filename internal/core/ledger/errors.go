package ledger

import "errors"

// Set of rejections for ledger operations. None of them leave partial state
// behind: a rejected operation changes neither balance nor history.
var (
	ErrInvalidAmount                 = errors.New("invalid amount")
	ErrInsufficientFunds             = errors.New("insufficient funds")
	ErrInvalidDenomination           = errors.New("invalid denomination")
	ErrWithdrawalLimitExceeded       = errors.New("exceeds withdrawal limit")
	ErrDailyWithdrawalCountExceeded  = errors.New("daily withdrawal count exceeded")
	ErrDailyTransactionCountExceeded = errors.New("daily transaction limit exceeded")
	ErrDuplicateAccountNumber        = errors.New("duplicate account number")
	ErrAccountNotFound               = errors.New("account not found")
)

var rejections = []error{
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrInvalidDenomination,
	ErrWithdrawalLimitExceeded,
	ErrDailyWithdrawalCountExceeded,
	ErrDailyTransactionCountExceeded,
}

// IsRejection reports whether err is a business rule refusing a deposit or
// withdrawal, as opposed to a lookup or creation failure.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

var codes = map[error]string{
	ErrInvalidAmount:                 "invalid_amount",
	ErrInsufficientFunds:             "insufficient_funds",
	ErrInvalidDenomination:           "invalid_denomination",
	ErrWithdrawalLimitExceeded:       "withdrawal_limit_exceeded",
	ErrDailyWithdrawalCountExceeded:  "daily_withdrawal_count_exceeded",
	ErrDailyTransactionCountExceeded: "daily_transaction_count_exceeded",
	ErrDuplicateAccountNumber:        "duplicate_account_number",
	ErrAccountNotFound:               "account_not_found",
}

// Code returns a stable machine readable code for a ledger error, or ""
// if err is not one.
func Code(err error) string {
	for e, code := range codes {
		if errors.Is(err, e) {
			return code
		}
	}
	return ""
}
