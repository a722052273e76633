package neuralnet

import (
	"math"

	"github.com/pkg/errors"
)

const (
	ScheduleNone        = "none"
	ScheduleCosine      = "cosine"
	ScheduleExponential = "exponential"
)

// Params configures training.
type Params struct {
	// TargetGain is the gain reached after warm-up.
	TargetGain float32
	// InitialGain is the gain at step 0 of warm-up.
	InitialGain float32
	WarmupSteps int
	// GainSchedule applies after warm-up: "none", "cosine" or "exponential".
	GainSchedule string
	// DecaySteps is the cosine decay length; <= 0 decays over all remaining steps.
	DecaySteps int
	// Decay is the per-step factor of the exponential schedule.
	Decay    float32
	Momentum float32
	Epochs   int
	// PreviewGains are multipliers of the current gain tried with UpdateGain
	// before each update; the one with the lowest previewed loss is committed.
	// Empty disables the preview.
	PreviewGains []float32
}

func DefaultParams() Params {
	return Params{
		TargetGain:   0.1,
		InitialGain:  0.1,
		GainSchedule: ScheduleNone,
		Decay:        1,
		Momentum:     0.1,
		Epochs:       10,
	}
}

func (p *Params) Validate() error {
	if p.TargetGain <= 0 {
		return errors.Wrapf(ErrInvalidParams, "target gain %v must be positive", p.TargetGain)
	}
	if p.InitialGain < 0 {
		return errors.Wrapf(ErrInvalidParams, "initial gain %v must not be negative", p.InitialGain)
	}
	if p.Momentum < 0 || p.Momentum >= 1 {
		return errors.Wrapf(ErrInvalidParams, "momentum %v must be in [0, 1)", p.Momentum)
	}
	if p.WarmupSteps < 0 {
		return errors.Wrapf(ErrInvalidParams, "warmup steps %d must not be negative", p.WarmupSteps)
	}
	if p.Epochs <= 0 {
		return errors.Wrapf(ErrInvalidParams, "epochs %d must be positive", p.Epochs)
	}
	switch p.GainSchedule {
	case "", ScheduleNone, ScheduleCosine:
	case ScheduleExponential:
		if p.Decay <= 0 || p.Decay > 1 {
			return errors.Wrapf(ErrInvalidParams, "decay %v must be in (0, 1]", p.Decay)
		}
	default:
		return errors.Wrapf(ErrInvalidParams, "unknown gain schedule %q", p.GainSchedule)
	}
	for _, m := range p.PreviewGains {
		if m <= 0 {
			return errors.Wrapf(ErrInvalidParams, "preview gain %v must be positive", m)
		}
	}
	return nil
}

// calculateCurrentGain returns the gain for currentGlobalStep: linear warm-up
// from InitialGain to TargetGain, then the configured schedule.
func calculateCurrentGain(params *Params, currentGlobalStep int, totalTrainingSteps int) float32 {
	if currentGlobalStep < params.WarmupSteps {
		frac := float32(currentGlobalStep) / float32(params.WarmupSteps)
		return params.InitialGain + (params.TargetGain-params.InitialGain)*frac
	}
	stepAfterWarmup := currentGlobalStep - params.WarmupSteps

	switch params.GainSchedule {
	case ScheduleCosine:
		decaySteps := params.DecaySteps
		if decaySteps <= 0 {
			decaySteps = totalTrainingSteps - params.WarmupSteps
		}
		if decaySteps <= 0 {
			return params.TargetGain
		}
		frac := math.Min(float64(stepAfterWarmup)/float64(decaySteps), 1)
		return params.TargetGain * float32(0.5*(1+math.Cos(math.Pi*frac)))
	case ScheduleExponential:
		return params.TargetGain * float32(math.Pow(float64(params.Decay), float64(stepAfterWarmup)))
	default:
		return params.TargetGain
	}
}
