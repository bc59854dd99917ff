package utils

import "github.com/shopspring/decimal"

// RoundMoney normalizes a monetary amount to two decimal places. The ledger
// store only ever holds two-decimal values; rounding happens at write time.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
