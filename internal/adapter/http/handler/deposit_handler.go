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

// DepositHandler handles deposit initiation endpoints.
type DepositHandler struct {
	depositSvc ports.DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(depositSvc ports.DepositService) *DepositHandler {
	return &DepositHandler{depositSvc: depositSvc}
}

// RequestDeposit handles POST /api/v1/deposits.
func (h *DepositHandler) RequestDeposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	result, err := h.depositSvc.RequestDeposit(c.Request.Context(), ports.DepositRequest{
		OwnerID:   ownerID,
		OwnerType: domain.OwnerType(req.OwnerType),
		Method:    domain.DepositMethod(req.Method),
		Amount:    amount,
		Currency:  req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		ReferenceID:  result.ReferenceID.String(),
		IntentID:     result.IntentID,
		RedirectURL:  result.RedirectURL,
		Instructions: result.Instructions,
	})
}
