package dto

import (
	"jvc-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("owner_type", validateOwnerType)
		_ = v.RegisterValidation("deposit_method", validateDepositMethod)
		_ = v.RegisterValidation("withdrawal_method", validateWithdrawalMethod)
		_ = v.RegisterValidation("decimal_amount", validateDecimalAmount)
	}
}

func validateOwnerType(fl validator.FieldLevel) bool {
	return domain.OwnerType(fl.Field().String()).Valid()
}

func validateDepositMethod(fl validator.FieldLevel) bool {
	return domain.DepositMethod(fl.Field().String()).Valid()
}

func validateWithdrawalMethod(fl validator.FieldLevel) bool {
	return domain.WithdrawalMethod(fl.Field().String()).Valid()
}

// validateDecimalAmount accepts a positive decimal string with at most
// two fractional digits.
func validateDecimalAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	if !d.IsPositive() {
		return false
	}
	return d.Exponent() >= -2
}
