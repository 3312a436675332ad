package handler

import (
	"jvc-ledger/internal/adapter/http/dto"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"
	"jvc-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles treasury inspection and settlement endpoints.
type AdminHandler struct {
	settlementSvc ports.SettlementService
	treasuryRepo  ports.TreasuryRepository
	walletRepo    ports.WalletRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(settlementSvc ports.SettlementService, treasuryRepo ports.TreasuryRepository, walletRepo ports.WalletRepository) *AdminHandler {
	return &AdminHandler{
		settlementSvc: settlementSvc,
		treasuryRepo:  treasuryRepo,
		walletRepo:    walletRepo,
	}
}

// GetTreasury handles GET /api/v1/admin/treasury. The snapshot is
// reconciled against the live wallet balance sum.
func (h *AdminHandler) GetTreasury(c *gin.Context) {
	treasury, err := h.treasuryRepo.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	walletSum, err := h.walletRepo.SumBalances(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TreasuryResponse{
		TotalSupply:        treasury.TotalSupply.String(),
		TotalUSDBacking:    treasury.TotalUSDBacking.String(),
		CollectedFees:      treasury.CollectedFees.String(),
		PendingDeposits:    treasury.PendingDeposits.String(),
		PendingWithdrawals: treasury.PendingWithdrawals.String(),
		WalletBalanceSum:   walletSum.String(),
		Reconciled:         treasury.TotalSupply.Equal(walletSum),
		UpdatedAt:          treasury.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// RunSettlement handles POST /api/v1/admin/settlements/run.
func (h *AdminHandler) RunSettlement(c *gin.Context) {
	var req dto.SettlementRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	summary, err := h.settlementSvc.RunBatch(c.Request.Context(), req.Limit, req.DryRun)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, summary)
}
