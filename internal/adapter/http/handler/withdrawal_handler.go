package handler

import (
	"jvc-ledger/internal/adapter/http/dto"
	"jvc-ledger/internal/adapter/http/middleware"
	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"
	"jvc-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WithdrawalHandler handles withdrawal request and admin transition endpoints.
type WithdrawalHandler struct {
	withdrawalSvc ports.WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalSvc ports.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalSvc: withdrawalSvc}
}

// Request handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var req dto.WithdrawalRequest
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

	rec, err := h.withdrawalSvc.Request(c.Request.Context(), ports.WithdrawalRequest{
		OwnerID:     ownerID,
		OwnerType:   domain.OwnerType(req.OwnerType),
		Amount:      amount,
		Method:      domain.WithdrawalMethod(req.Method),
		Destination: req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWithdrawalResponse(rec))
}

// Transition handles POST /api/v1/admin/withdrawals/:id/transition.
func (h *WithdrawalHandler) Transition(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid withdrawal id"))
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var rec *domain.WithdrawalRecord
	switch req.Action {
	case "approve":
		rec, err = h.withdrawalSvc.Approve(c.Request.Context(), withdrawalID, c.GetString(middleware.CtxActor))
	case "reject":
		if req.Reason == "" {
			response.Error(c, apperror.Validation("reason is required for reject"))
			return
		}
		rec, err = h.withdrawalSvc.Reject(c.Request.Context(), withdrawalID, req.Reason)
	case "mark_paid":
		rec, err = h.withdrawalSvc.MarkPaid(c.Request.Context(), withdrawalID)
	default:
		response.Error(c, apperror.Validation("unknown action"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWithdrawalResponse(rec))
}

// toWithdrawalResponse converts domain.WithdrawalRecord to DTO.
func toWithdrawalResponse(rec *domain.WithdrawalRecord) dto.WithdrawalResponse {
	resp := dto.WithdrawalResponse{
		ID:            rec.ID.String(),
		WalletID:      rec.WalletID.String(),
		Status:        string(rec.Status),
		Amount:        rec.Amount.String(),
		Fee:           rec.Fee.String(),
		NetPayout:     rec.NetPayout.String(),
		Method:        string(rec.Method),
		Destination:   rec.Destination,
		RejectReason:  rec.RejectReason,
		FailureReason: rec.FailureReason,
		ApprovedBy:    rec.ApprovedBy,
		RequestedAt:   rec.RequestedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if rec.CompletedAt != nil {
		s := rec.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.CompletedAt = &s
	}
	return resp
}
