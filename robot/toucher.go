package robot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"smarthand"
)

// ErrUnsafeHeights means the configured safe height is at or below the touch
// target, which would make the stylus travel horizontally at screen height.
var ErrUnsafeHeights = errors.New("safe height must be above the touch target")

// Mover is the motion surface the touch sequence needs. *Controller
// implements it.
type Mover interface {
	MoveTo(target smarthand.TargetPoint, feedrate int) error
	MoveZ(z float64, feedrate int) error
	Dwell(d time.Duration) error
	EmergencyStop() error
}

// TouchConfig holds the operator-tunable touch parameters.
type TouchConfig struct {
	// SafeZ is the height for all horizontal transit, in mm.
	SafeZ float64

	// Duration is how long the stylus holds on the screen.
	Duration time.Duration

	// Feedrate for every move of the sequence, mm/min. 0 uses the
	// controller default.
	Feedrate int
}

// Toucher runs the touch motion sequence. At most one sequence runs at a
// time; the mutex is the single command slot.
//
// The step order is a safety invariant, not a preference: retract, travel at
// safe height, descend, hold, lift. The stylus never moves horizontally at
// surface height, and any device fault mid-sequence triggers an emergency
// stop instead of a retry.
type Toucher struct {
	mover Mover
	log   *logrus.Logger
	mu    sync.Mutex
}

// NewToucher wires a touch composer to a motion controller.
func NewToucher(mover Mover, log *logrus.Logger) *Toucher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Toucher{mover: mover, log: log}
}

// Touch performs one complete tap at the target, whose Z is the touch height
// (phone surface minus press depth).
func (t *Toucher) Touch(target smarthand.TargetPoint, cfg TouchConfig) error {
	if cfg.SafeZ <= target.Z {
		return fmt.Errorf("%w: safe %.2f, touch %.2f", ErrUnsafeHeights, cfg.SafeZ, target.Z)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	step := smarthand.TouchStepNone
	advance := func() smarthand.TouchStep {
		step = step.Next()
		t.log.WithFields(logrus.Fields{"step": step.String(), "target": target.String()}).Info("touch sequence")
		return step
	}

	fail := func(err error) error {
		if stopErr := t.mover.EmergencyStop(); stopErr != nil {
			t.log.WithError(stopErr).Error("emergency stop failed after touch fault")
		}
		return fmt.Errorf("touch %s failed: %w", step, err)
	}

	advance() // Retract
	if err := t.mover.MoveZ(cfg.SafeZ, cfg.Feedrate); err != nil {
		return fail(err)
	}

	advance() // Travel
	transit := smarthand.TargetPoint{X: target.X, Y: target.Y, Z: cfg.SafeZ}
	if err := t.mover.MoveTo(transit, cfg.Feedrate); err != nil {
		return fail(err)
	}

	advance() // Descend
	if err := t.mover.MoveZ(target.Z, cfg.Feedrate); err != nil {
		return fail(err)
	}

	advance() // Hold
	if err := t.mover.Dwell(cfg.Duration); err != nil {
		return fail(err)
	}

	advance() // Lift
	if err := t.mover.MoveZ(cfg.SafeZ, cfg.Feedrate); err != nil {
		return fail(err)
	}

	advance() // Done
	return nil
}
