package enums

// GatewayState is the normalized answer from a gateway status query.
type GatewayState string

const (
	GatewayStateCompleted GatewayState = "completed"
	GatewayStateFailed    GatewayState = "failed"
	GatewayStatePending   GatewayState = "pending"
)

// String implements fmt.Stringer.
func (g GatewayState) String() string {
	return string(g)
}

// NormalizePhonePeState maps PhonePe order states onto the canonical set.
// Unknown states are treated as pending so a stale read never finalizes an
// order.
func NormalizePhonePeState(raw string) GatewayState {
	switch raw {
	case "COMPLETED":
		return GatewayStateCompleted
	case "FAILED":
		return GatewayStateFailed
	default:
		return GatewayStatePending
	}
}
