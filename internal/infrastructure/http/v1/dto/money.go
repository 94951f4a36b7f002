package dto

import (
	"rentory/internal/core/apperror"
	"rentory/internal/core/types"
)

// moneyOrZero parses an optional money string; nil means zero.
func moneyOrZero(s *string) (types.Money, error) {
	if s == nil {
		return types.ZeroMoney(), nil
	}
	return types.NewMoneyFromString(*s)
}

func invalidMoney(field, value string) error {
	return apperror.NewValidation("invalid monetary value").
		WithDetail("field", field).
		WithDetail("value", value)
}
