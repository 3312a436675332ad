package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Treasury is the singleton supply row. TotalSupply must equal the sum of
// all wallet balances (available + locked) at every transaction boundary;
// the pairing of supply changes with MintBurnAudit rows makes that checkable.
type Treasury struct {
	TotalSupply        decimal.Decimal `json:"total_supply"`
	TotalUSDBacking    decimal.Decimal `json:"total_usd_backing"`
	CollectedFees      decimal.Decimal `json:"collected_fees"`
	PendingDeposits    decimal.Decimal `json:"pending_deposits"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
