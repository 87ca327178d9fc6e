package enums

// TransactionType distinguishes the purchase flows. The credit-pack flow is
// legacy; single purchases always carry zero credits.
type TransactionType string

const (
	TransactionTypeSinglePurchase TransactionType = "single_purchase"
	TransactionTypeUpscale        TransactionType = "upscale"
	TransactionTypeCreditPack     TransactionType = "credit_pack"
)

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSinglePurchase, TransactionTypeUpscale, TransactionTypeCreditPack:
		return true
	}
	return false
}
