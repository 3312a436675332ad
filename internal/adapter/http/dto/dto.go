package dto

// DepositRequest is the request body for deposit initiation.
type DepositRequest struct {
	OwnerID   string `json:"owner_id" binding:"required,uuid"`
	OwnerType string `json:"owner_type" binding:"required,owner_type"`
	Method    string `json:"method" binding:"required,deposit_method"`
	Amount    string `json:"amount" binding:"required,decimal_amount"`
	Currency  string `json:"currency" binding:"required,len=3"`
}

// DepositResponse is the response body for successful deposit initiation.
type DepositResponse struct {
	ReferenceID  string `json:"reference_id"`
	IntentID     string `json:"intent_id"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// WebhookEvent is the payment processor's webhook payload.
type WebhookEvent struct {
	EventID         string `json:"event_id" binding:"required,max=128"`
	Type            string `json:"type" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required,max=128"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	SenderID      string  `json:"sender_id" binding:"required,uuid"`
	RecipientID   string  `json:"recipient_id" binding:"required,uuid"`
	RecipientType string  `json:"recipient_type" binding:"required,owner_type"`
	Amount        string  `json:"amount" binding:"required,decimal_amount"`
	OrderID       *string `json:"order_id,omitempty" binding:"omitempty,max=100"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID              string  `json:"id"`
	TransactionType string  `json:"transaction_type"`
	Status          string  `json:"status"`
	Amount          string  `json:"amount"`
	Fee             string  `json:"fee"`
	OrderID         *string `json:"order_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// WithdrawalRequest is the request body for a withdrawal request.
type WithdrawalRequest struct {
	OwnerID     string `json:"owner_id" binding:"required,uuid"`
	OwnerType   string `json:"owner_type" binding:"required,owner_type"`
	Amount      string `json:"amount" binding:"required,decimal_amount"`
	Method      string `json:"method" binding:"required,withdrawal_method"`
	Destination string `json:"destination" binding:"required,min=1,max=200"`
}

// WithdrawalResponse is the response body for withdrawal state.
type WithdrawalResponse struct {
	ID            string  `json:"id"`
	WalletID      string  `json:"wallet_id"`
	Status        string  `json:"status"`
	Amount        string  `json:"amount"`
	Fee           string  `json:"fee"`
	NetPayout     string  `json:"net_payout"`
	Method        string  `json:"method"`
	Destination   string  `json:"destination"`
	RejectReason  *string `json:"reject_reason,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	ApprovedBy    *string `json:"approved_by,omitempty"`
	RequestedAt   string  `json:"requested_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

// TransitionRequest is the admin request body for withdrawal transitions.
type TransitionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject mark_paid"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SettlementRunRequest is the admin request body for a manual settlement batch.
type SettlementRunRequest struct {
	Limit  int  `json:"limit" binding:"required,gt=0,lte=500"`
	DryRun bool `json:"dry_run"`
}

// WalletResponse is the response body for a wallet balance read.
type WalletResponse struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	OwnerType        string `json:"owner_type"`
	BalanceAvailable string `json:"balance_available"`
	BalanceLocked    string `json:"balance_locked"`
	Frozen           bool   `json:"frozen"`
	CreatedAt        string `json:"created_at"`
}

// TreasuryResponse is the admin response body for the treasury snapshot.
// Reconciled is true when total supply equals the sum of all wallet balances.
type TreasuryResponse struct {
	TotalSupply        string `json:"total_supply"`
	TotalUSDBacking    string `json:"total_usd_backing"`
	CollectedFees      string `json:"collected_fees"`
	PendingDeposits    string `json:"pending_deposits"`
	PendingWithdrawals string `json:"pending_withdrawals"`
	WalletBalanceSum   string `json:"wallet_balance_sum"`
	Reconciled         bool   `json:"reconciled"`
	UpdatedAt          string `json:"updated_at"`
}
