package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"onboarding_flow/pkg"
)

// BalanceService reads the current balance row of an account
type BalanceService struct {
	rpc       Caller
	procedure string
}

// NewBalanceService creates a balance service over a remote procedure caller
func NewBalanceService(rpc Caller, procedure string) *BalanceService {
	if procedure == "" {
		procedure = "get_account_balance"
	}
	return &BalanceService{rpc: rpc, procedure: procedure}
}

// Fetch calls the balance procedure and keeps the numeric fields of its first row
func (s *BalanceService) Fetch(ctx context.Context, accountID string) (pkg.Balance, error) {
	rows, err := s.rpc.Call(ctx, s.procedure, map[string]any{"account_id": accountID})
	if err != nil {
		return pkg.Balance{}, err
	}
	if len(rows) == 0 {
		return pkg.Balance{}, &RPCError{Procedure: s.procedure, Err: fmt.Errorf("no balance row for account %s", accountID)}
	}

	return pkg.Balance{
		AccountID: accountID,
		Fields:    numericFields(rows[0]),
		FetchedAt: time.Now(),
	}, nil
}

// Fetcher binds the service to one account, for use with the poller
func (s *BalanceService) Fetcher(accountID string) func(ctx context.Context) (pkg.Balance, error) {
	return func(ctx context.Context) (pkg.Balance, error) {
		return s.Fetch(ctx, accountID)
	}
}

// numericFields keeps the values that read as numbers; numeric columns
// often arrive as strings to preserve precision.
func numericFields(row map[string]any) pkg.Row {
	out := make(pkg.Row, len(row))
	for k, v := range row {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}
