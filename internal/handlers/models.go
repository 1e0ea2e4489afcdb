package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rschio/bank/internal/core/bank"
	"github.com/rschio/bank/internal/core/ledger"
	"github.com/rschio/bank/internal/money"
)

// dateLayout is the layout of calendar dates in requests and responses.
const dateLayout = time.DateOnly

type ClientReq struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	TaxID     string `json:"tax_id"`
	Address   string `json:"address"`
}

func (req ClientReq) toNewClient() (bank.NewClient, error) {
	var birth time.Time
	if req.BirthDate != "" {
		var err error
		birth, err = time.Parse(dateLayout, req.BirthDate)
		if err != nil {
			return bank.NewClient{}, fmt.Errorf("%w: birth date: %w", bank.ErrInvalidArgument, err)
		}
	}

	return bank.NewClient{
		Name:      req.Name,
		BirthDate: birth,
		TaxID:     req.TaxID,
		Address:   req.Address,
	}, nil
}

type ClientResp struct {
	TaxID     string `json:"tax_id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date,omitempty"`
	Address   string `json:"address"`
}

func toClientResp(c *ledger.Client) ClientResp {
	resp := ClientResp{
		TaxID:   c.Identity().Key(),
		Name:    c.Identity().DisplayName(),
		Address: c.Address(),
	}
	if p, ok := c.Identity().(ledger.Person); ok && !p.BirthDate.IsZero() {
		resp.BirthDate = p.BirthDate.Format(dateLayout)
	}
	return resp
}

type AccountReq struct {
	Number int    `json:"number"`
	Type   string `json:"type"`
}

type AccountResp struct {
	Branch  string       `json:"branch"`
	Number  int          `json:"number"`
	Type    string       `json:"type"`
	Balance money.Amount `json:"balance"`

	OverdraftLimit       *money.Amount `json:"overdraft_limit,omitempty"`
	MaxDailyWithdrawals  int           `json:"max_daily_withdrawals,omitempty"`
	MaxDailyTransactions int           `json:"max_daily_transactions,omitempty"`
}

func toAccountResp(a ledger.Account) AccountResp {
	resp := AccountResp{
		Branch:  a.Branch(),
		Number:  a.Number(),
		Type:    string(bank.AccountBasic),
		Balance: a.Balance(),
	}
	if c, ok := a.(*ledger.CheckingAccount); ok {
		limit := c.OverdraftLimit()
		resp.Type = string(bank.AccountChecking)
		resp.OverdraftLimit = &limit
		resp.MaxDailyWithdrawals = c.MaxDailyWithdrawals()
		resp.MaxDailyTransactions = c.MaxDailyTransactions()
	}
	return resp
}

func toAccountResps(as []ledger.Account) []AccountResp {
	slice := make([]AccountResp, len(as))
	for i, a := range as {
		slice[i] = toAccountResp(a)
	}
	return slice
}

type TransactionReq struct {
	Kind   ledger.Kind  `json:"kind"`
	Amount money.Amount `json:"amount"`
}

type Record struct {
	ID        uuid.UUID    `json:"id"`
	Kind      ledger.Kind  `json:"kind"`
	Amount    money.Amount `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type StatementResp struct {
	Branch  string       `json:"branch"`
	Number  int          `json:"number"`
	Holder  string       `json:"holder"`
	Balance money.Amount `json:"balance"`
	Records []Record     `json:"records"`
}

func toStatementResp(st ledger.Statement) StatementResp {
	records := make([]Record, len(st.Records))
	for i, r := range st.Records {
		records[i] = Record(r)
	}

	return StatementResp{
		Branch:  st.Branch,
		Number:  st.Number,
		Holder:  st.Holder,
		Balance: st.Balance,
		Records: records,
	}
}

type SummaryResp struct {
	Branch  string       `json:"branch"`
	Number  int          `json:"number"`
	Holder  string       `json:"holder"`
	Balance money.Amount `json:"balance"`
}

func toSummaryResps(ss []ledger.Summary) []SummaryResp {
	slice := make([]SummaryResp, len(ss))
	for i, s := range ss {
		slice[i] = SummaryResp(s)
	}
	return slice
}

type ErrorResp struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
