package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
)

// DeriveStatus computes the payment status of an entry. An entry is paid when
// it is short by less than a cent, which makes a zero share paid. Otherwise
// any positive payment makes it partial.
func DeriveStatus(paid, share decimal.Decimal) models.PaymentStatus {
	if share.Sub(paid).LessThan(Cent) {
		return models.PaymentStatusPaid
	}
	if paid.IsPositive() {
		return models.PaymentStatusPartial
	}
	return models.PaymentStatusUnpaid
}
