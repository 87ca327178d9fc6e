package types

import "github.com/shopspring/decimal"

// PaiseToRupees renders a minor-unit amount as a display string ("49.00").
// Storage and arithmetic stay in integer paise; decimal is used only at the
// presentation boundary.
func PaiseToRupees(paise int64) string {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).StringFixed(2)
}
