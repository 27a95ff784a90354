package executors

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionState carries the running counters of one session. It is owned
// exclusively by the order loop; the fetch loop never touches it, so no
// locking is needed. A new run always starts from a fresh state.
type ExecutionState struct {
	SessionID       string
	OrdersPlaced    int
	AmountSpent     decimal.Decimal
	RemainingBudget decimal.Decimal
}

// NewExecutionState initializes counters for a session with the given budget.
func NewExecutionState(totalAmountToInvest decimal.Decimal) *ExecutionState {
	return &ExecutionState{
		SessionID:       uuid.NewString(),
		AmountSpent:     decimal.Zero,
		RemainingBudget: totalAmountToInvest,
	}
}
