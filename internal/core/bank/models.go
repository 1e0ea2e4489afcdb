package bank

import (
	"fmt"
	"time"

	"github.com/rschio/bank/internal/core/ledger"
	"github.com/rschio/bank/internal/money"
)

// NewClient is what is needed to register an individual client.
type NewClient struct {
	Name      string
	BirthDate time.Time
	TaxID     string
	Address   string
}

// AccountType selects the kind of account to open.
type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountBasic    AccountType = "basic"
)

// NewAccount describes an account to open. A zero Number asks for the next
// sequential number; an empty Type opens a checking account.
type NewAccount struct {
	Number int
	Type   AccountType
}

// NewTransaction is a deposit or withdrawal request.
type NewTransaction struct {
	Kind   ledger.Kind
	Amount money.Amount
}

func (nc NewClient) validate() error {
	switch {
	case nc.TaxID == "":
		return ErrInvalidArgument
	case nc.Name == "":
		return ErrInvalidArgument
	}
	return nil
}

func (nt NewTransaction) validate() error {
	if err := nt.Amount.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

func (na NewAccount) validate() error {
	switch {
	case na.Number < 0:
		return ErrInvalidArgument
	case na.Type != "" && na.Type != AccountChecking && na.Type != AccountBasic:
		return ErrInvalidArgument
	}
	return nil
}
