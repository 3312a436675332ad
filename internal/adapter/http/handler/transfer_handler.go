package handler

import (
	"jvc-ledger/internal/adapter/http/dto"
	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"
	"jvc-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferHandler handles wallet-to-wallet transfer endpoints.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// Transfer handles POST /api/v1/transfers.
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	senderID, err := uuid.Parse(req.SenderID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid sender_id"))
		return
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid recipient_id"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	txn, err := h.transferSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		SenderID:      senderID,
		RecipientID:   recipientID,
		RecipientType: domain.OwnerType(req.RecipientType),
		Amount:        amount,
		OrderID:       req.OrderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(txn *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:              txn.ID.String(),
		TransactionType: string(txn.Type),
		Status:          string(txn.Status),
		Amount:          txn.Amount.String(),
		Fee:             txn.Fee.String(),
		OrderID:         txn.OrderID,
		CreatedAt:       txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
