package thermal

// Action is the valve command decided for one tick.
type Action string

const (
	// ActionIdle means thermal control is suspended with both valves
	// closed; commanded while the bed is unoccupied.
	ActionIdle          Action = "idle"
	ActionHeat          Action = "heat"
	ActionCool          Action = "cool"
	ActionMaintain      Action = "maintain"
	ActionSafetyBlock   Action = "safety_block"
	ActionEmergencyHeat Action = "emergency_heat"
	ActionEmergencyCool Action = "emergency_cool"
)

// Emergency reports whether the action came from a safety override rather
// than normal target/tolerance arbitration.
func (a Action) Emergency() bool {
	return a == ActionEmergencyHeat || a == ActionEmergencyCool
}

// ValveState mirrors the commanded relay outputs.
// hot and cold open together is never a legal state.
type ValveState struct {
	HotOpen      bool
	ColdOpen     bool
	SafetyActive bool
}

// Decision is the arbiter output for one tick.
type Decision struct {
	Action   Action
	HotOpen  bool
	ColdOpen bool
}

// SafetyLimits are the absolute physiological bounds that trigger
// emergency overrides.
type SafetyLimits struct {
	MaxHeartRate int     // above: force cooling (default 120)
	MinHeartRate int     // below: force heating (default 40)
	FeverC       float64 // body temperature at or above: force cooling (default 38.0)
	LowBodyC     float64 // body temperature at or below: force heating (default 35.5)
}

// Vitals is the safety-relevant sensor view for override evaluation.
type Vitals struct {
	HeartRate       int
	HRValid         bool
	BodyTemperature float64
}

// Arbiter converts (target, current, tolerance) into heat/cool/maintain
// decisions under a hard mutual-exclusion invariant, with vital-sign
// overrides that bypass the normal arbitration for the tick.
type Arbiter struct {
	limits SafetyLimits
}

// NewArbiter creates an arbiter with the given safety limits.
func NewArbiter(limits SafetyLimits) Arbiter {
	return Arbiter{limits: limits}
}

// Decide returns the valve decision for this tick. Overrides are evaluated
// first; conflicting overrides (one demanding heat, another cool) resolve
// to a safety block with both valves closed.
func (a Arbiter) Decide(target, current, tolerance float64, v Vitals) Decision {
	if d, forced := a.override(v); forced {
		return enforce(d)
	}

	diff := target - current
	var d Decision
	switch {
	case diff >= -tolerance && diff <= tolerance:
		d = Decision{Action: ActionMaintain}
	case diff > tolerance:
		d = Decision{Action: ActionHeat, HotOpen: true}
	default:
		d = Decision{Action: ActionCool, ColdOpen: true}
	}
	return enforce(d)
}

// override evaluates the emergency vital-sign rules.
func (a Arbiter) override(v Vitals) (Decision, bool) {
	wantCool := (v.HRValid && v.HeartRate > a.limits.MaxHeartRate) ||
		v.BodyTemperature >= a.limits.FeverC
	wantHeat := (v.HRValid && v.HeartRate < a.limits.MinHeartRate) ||
		v.BodyTemperature <= a.limits.LowBodyC

	switch {
	case wantCool && wantHeat:
		// Contradictory vitals: fail closed.
		return Decision{Action: ActionSafetyBlock}, true
	case wantCool:
		return Decision{Action: ActionEmergencyCool, ColdOpen: true}, true
	case wantHeat:
		return Decision{Action: ActionEmergencyHeat, HotOpen: true}, true
	default:
		return Decision{}, false
	}
}

// enforce applies the mutual-exclusion invariant unconditionally. The
// branches above cannot produce a double-open, but the check runs on every
// decision anyway and overrides the action to a safety block if tripped.
func enforce(d Decision) Decision {
	if d.HotOpen && d.ColdOpen {
		return Decision{Action: ActionSafetyBlock}
	}
	return d
}
