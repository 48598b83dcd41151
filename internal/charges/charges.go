package charges

// Breakdown is the fixed fee line items charged on top of a transfer amount,
// in minor currency units.
type Breakdown struct {
	VAT       int64 `json:"vat"`
	Fee       int64 `json:"fee"`
	StampDuty int64 `json:"stampDuty"`
}

// Total returns the sum of all fee line items.
func (b Breakdown) Total() int64 {
	return b.VAT + b.Fee + b.StampDuty
}

var (
	internalCharges = Breakdown{VAT: 5, Fee: 5, StampDuty: 40}
	externalCharges = Breakdown{VAT: 10, Fee: 10, StampDuty: 50}
)

// ForChannel returns the charge breakdown applied to transfers on the given
// channel. External and international payouts share the higher tariff.
func ForChannel(channel string) Breakdown {
	switch channel {
	case "EXTERNAL", "INTERNATIONAL":
		return externalCharges
	default:
		return internalCharges
	}
}
