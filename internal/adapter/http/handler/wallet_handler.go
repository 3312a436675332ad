package handler

import (
	"jvc-ledger/internal/adapter/http/dto"
	"jvc-ledger/internal/core/domain"
	"jvc-ledger/internal/core/ports"
	"jvc-ledger/pkg/apperror"
	"jvc-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet read endpoints.
type WalletHandler struct {
	walletRepo ports.WalletRepository
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletRepo ports.WalletRepository) *WalletHandler {
	return &WalletHandler{walletRepo: walletRepo}
}

// GetByOwner handles GET /api/v1/wallets/:owner_type/:owner_id.
func (h *WalletHandler) GetByOwner(c *gin.Context) {
	ownerType := domain.OwnerType(c.Param("owner_type"))
	if !ownerType.Valid() {
		response.Error(c, apperror.Validation("invalid owner_type"))
		return
	}
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	wallet, err := h.walletRepo.GetByOwner(c.Request.Context(), ownerID, ownerType)
	if err != nil {
		response.Error(c, err)
		return
	}
	if wallet == nil {
		response.Error(c, apperror.ErrNotFound("wallet"))
		return
	}

	response.OK(c, dto.WalletResponse{
		ID:               wallet.ID.String(),
		OwnerID:          wallet.OwnerID.String(),
		OwnerType:        string(wallet.OwnerType),
		BalanceAvailable: wallet.BalanceAvailable.String(),
		BalanceLocked:    wallet.BalanceLocked.String(),
		Frozen:           wallet.IsFrozen,
		CreatedAt:        wallet.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
