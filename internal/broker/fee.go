package broker

// FeeKind distinguishes the two supported fee schedules.
type FeeKind int

const (
	// FeeFlat charges a constant amount per order regardless of notional.
	FeeFlat FeeKind = iota
	// FeePercentage charges a fraction of the order's notional value.
	FeePercentage
)

// FeeSchedule computes the fee owed on an order's notional value.
type FeeSchedule struct {
	Kind   FeeKind
	Amount float64 // flat fee, or fraction in [0,1] for percentage
}

// Flat builds a fixed per-order fee schedule.
func Flat(amount float64) FeeSchedule { return FeeSchedule{Kind: FeeFlat, Amount: amount} }

// Percentage builds a notional-proportional fee schedule.
func Percentage(fraction float64) FeeSchedule {
	return FeeSchedule{Kind: FeePercentage, Amount: fraction}
}

// Fee returns the fee owed on the given notional amount.
func (f FeeSchedule) Fee(notional float64) float64 {
	if f.Kind == FeePercentage {
		return notional * f.Amount
	}
	return f.Amount
}

// BuyHoldFee mirrors Fee but is named for readability at the buy-and-hold
// benchmark call sites in the metrics package.
func (f FeeSchedule) BuyHoldFee(notional float64) float64 { return f.Fee(notional) }
