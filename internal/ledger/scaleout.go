package ledger

import (
	"paperTrader/internal/domain"
)

// ScaleOutStage describes one staged profit-taking level.
type ScaleOutStage struct {
	Multiple    float64 // Profit multiple of entry price that arms the stage
	Fraction    float64 // Fraction of the basis quantity to exit
	OfRemaining bool    // Fraction applies to remaining quantity instead of total bought
	NeedInitial bool    // Stage only fires while the initial investment is not yet secured
}

// DefaultScaleOutStages is the staged exit ladder evaluated on every price
// refresh. Stages are ordered by ascending multiple; each fires at most once
// per position, tracked through the multiples recorded in ScaleOutHistory.
var DefaultScaleOutStages = []ScaleOutStage{
	{Multiple: 2.0, Fraction: 0.50, NeedInitial: true},
	{Multiple: 3.0, Fraction: 0.25},
	{Multiple: 5.0, Fraction: 0.50, OfRemaining: true},
	{Multiple: 10.0, Fraction: 0.75, OfRemaining: true},
}

// ScaleOutDecision is the result of evaluating the policy against a position:
// the stage to fire and the concrete quantity to exit.
type ScaleOutDecision struct {
	Stage    ScaleOutStage
	Quantity float64
}

// EvaluateScaleOut is a pure decision function. It returns the lowest unfired
// stage whose multiple the position has reached, or nil when nothing should
// fire. It never proposes exiting more than the position currently holds and
// never fires for a position without a positive entry price.
func EvaluateScaleOut(p *domain.Position, stages []ScaleOutStage) *ScaleOutDecision {
	if !p.IsActive() || p.Quantity <= quantityEpsilon {
		return nil
	}
	multiple := p.Multiple()
	if multiple <= 0 {
		return nil
	}

	for _, stage := range stages {
		if multiple < stage.Multiple {
			// Stages are ascending; nothing further can fire.
			return nil
		}
		if p.HasScaledOutAt(stage.Multiple) {
			continue
		}
		if stage.NeedInitial && p.SecuredInitial {
			continue
		}

		qty := stage.Fraction * p.TotalBought
		if stage.OfRemaining {
			qty = stage.Fraction * p.Quantity
		}
		if qty > p.Quantity {
			qty = p.Quantity
		}
		if qty <= quantityEpsilon {
			continue
		}
		return &ScaleOutDecision{Stage: stage, Quantity: qty}
	}
	return nil
}
