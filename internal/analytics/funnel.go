package analytics

import (
	"errors"
	"fmt"

	"github.com/ibeckermayer/xdash/internal/types"
)

var ErrShortFunnel = errors.New("funnel needs six stages")

const funnelStages = 6

// FunnelInsight compares the conversion between two stages against a target.
type FunnelInsight struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Rate   float64 `json:"rate"`   // percent, one decimal
	Target float64 `json:"target"` // percent
	OK     bool    `json:"ok"`
}

var funnelChecks = []struct {
	from, to int
	target   float64
}{
	{0, 1, 2},
	{1, 2, 10},
	{4, 5, 5},
}

// FunnelInsights evaluates the impression, profile and checkout conversions.
func FunnelInsights(stages []types.FunnelStage) ([]FunnelInsight, error) {
	if len(stages) < funnelStages {
		return nil, fmt.Errorf("%w: got %d", ErrShortFunnel, len(stages))
	}
	out := make([]FunnelInsight, 0, len(funnelChecks))
	for _, c := range funnelChecks {
		from, to := stages[c.from], stages[c.to]
		rate := ConversionRate(from.Value, to.Value)
		out = append(out, FunnelInsight{
			From:   from.Label,
			To:     to.Label,
			Rate:   rate,
			Target: c.target,
			OK:     rate >= c.target,
		})
	}
	return out, nil
}

// ConversionRate is to/from as a percentage rounded to one decimal.
func ConversionRate(from, to int) float64 {
	if from == 0 {
		return 0
	}
	return round1(float64(to) / float64(from) * 100)
}

// Variant names one side of an A/B test.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// ABWinner picks A only when it strictly beats B; ties go to B.
func ABWinner(t types.ABTest) Variant {
	if t.ResultA > t.ResultB {
		return VariantA
	}
	return VariantB
}
