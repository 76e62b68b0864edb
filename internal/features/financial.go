package features

import (
	"math"

	"vehicle-intelligence/internal/domain"
)

// Financial holds the payment features of one record.
type Financial struct {
	RevenuePerMinute       float64
	PaymentEfficiencyScore float64
}

// ExtractFinancial derives revenue rate features. Division by a zero duration
// and any non-finite result collapse to 0.
func ExtractFinancial(amount, durationMinutes float64) Financial {
	rpm := 0.0
	if durationMinutes != 0 {
		rpm = amount / durationMinutes
	}
	if math.IsNaN(rpm) || math.IsInf(rpm, 0) {
		rpm = 0
	}

	score := 0.0
	if amount > 0 {
		score = clip(rpm*10, 0, 100)
	}
	return Financial{RevenuePerMinute: rpm, PaymentEfficiencyScore: score}
}

func (fin Financial) apply(f *domain.DerivedFeatureSet) {
	f.RevenuePerMinute = ptr(fin.RevenuePerMinute)
	f.PaymentEfficiencyScore = ptr(fin.PaymentEfficiencyScore)
}

// PaymentMethods is an exact, case-sensitive allow-list of digital methods.
type PaymentMethods map[string]struct{}

// NewPaymentMethods builds the allow-list.
func NewPaymentMethods(methods []string) PaymentMethods {
	set := make(PaymentMethods, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}

// IsDigital reports whether method is on the list.
func (p PaymentMethods) IsDigital(method string) bool {
	_, ok := p[method]
	return ok
}

// applyPayment sets the columns depending only on the raw record.
func (p PaymentMethods) applyPayment(r *domain.MovementRecord, f *domain.DerivedFeatureSet) {
	f.IsDigitalPayment = ptr(p.IsDigital(r.PaymentMethod))
}
