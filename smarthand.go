package smarthand

import "fmt"

// Point is a position in rectified-pixel space, the fixed-size top-down image
// produced by the perspective rectifier.
type Point struct {
	X float64
	Y float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// RealPoint is a planar position in the robot's workspace, in millimeters.
type RealPoint struct {
	X float64
	Y float64
}

func (p RealPoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f) mm", p.X, p.Y)
}

// TargetPoint is a full workspace coordinate the robot is commanded to reach.
// Z is either the phone-surface height (touching) or the safe transit height.
type TargetPoint struct {
	X float64
	Y float64
	Z float64
}

func (p TargetPoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f) mm", p.X, p.Y, p.Z)
}

// TouchStep is one stage of the touch motion sequence. The ordering is a
// safety invariant: the stylus never moves horizontally at surface height.
type TouchStep int

const (
	TouchStepNone TouchStep = iota
	TouchStepRetract
	TouchStepTravel
	TouchStepDescend
	TouchStepHold
	TouchStepLift
	TouchStepDone
)

func (s TouchStep) String() string {
	switch s {
	case TouchStepRetract:
		return "Retract"
	case TouchStepTravel:
		return "Travel"
	case TouchStepDescend:
		return "Descend"
	case TouchStepHold:
		return "Hold"
	case TouchStepLift:
		return "Lift"
	case TouchStepDone:
		return "Done"
	default:
		fallthrough
	case TouchStepNone:
		return "Unknown"
	}
}

// Next goes to the next stage of the touch sequence
func (s TouchStep) Next() TouchStep {
	if s == TouchStepDone {
		return TouchStepDone
	}
	return s + 1
}
