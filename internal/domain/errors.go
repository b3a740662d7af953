package domain

import (
	"errors"
	"fmt"
)

// Taxonomia de erros. Os específicos embrulham a categoria (ErrValidation etc.)
// para que a camada HTTP possa decidir só com errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidAmount   = fmt.Errorf("%w: transaction amount must be greater than zero", ErrValidation)
	ErrAmountPrecision = fmt.Errorf("%w: amount supports at most 2 decimal places", ErrValidation)
	ErrSameAccount     = fmt.Errorf("%w: sender and receiver must be different accounts", ErrValidation)

	ErrUnauthorized         = errors.New("unauthorized")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNoChallenge          = errors.New("no outstanding otp challenge")
	ErrChallengeExpired     = errors.New("otp challenge expired")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrReceiverNotFound  = errors.New("receiver not found")
	ErrConflict          = errors.New("account already exists with this mobile number")
	ErrRateLimited       = errors.New("too many otp requests")

	ErrProvider = errors.New("otp provider failure")
	ErrStorage  = errors.New("storage failure")
	ErrTimeout  = errors.New("operation timed out")
	ErrDecrypt  = errors.New("ledger envelope could not be decrypted")
)

// PartialFailureError indica que o saldo foi alterado mas o registro não chegou ao ledger.
// Saldo e ledger estão fora de sincronia: precisa de reconciliação manual.
type PartialFailureError struct {
	Record *TransactionRecord
	Err    error
}

func (e *PartialFailureError) Error() string {
	id := ""
	if e.Record != nil {
		id = e.Record.ID
	}
	return fmt.Sprintf("partial failure: balance applied but transaction %s not recorded: %v", id, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsBusinessError diz se o erro é uma rejeição de regra de negócio ou de entrada,
// ou seja, algo que deve ser devolvido ao cliente como está.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrUnauthorized, ErrAuthenticationFailed, ErrNoChallenge,
		ErrInsufficientFunds, ErrAccountNotFound, ErrReceiverNotFound, ErrConflict, ErrRateLimited,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
