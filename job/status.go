package job

// Status is the lifecycle state of one worker run.
//
// NotStarted → Starting → Running → (Killing → UnsuccessfulFinish)
//
//	| (Completing → SuccessfulFinish)
type Status int

const (
	NotStarted Status = iota
	Starting
	Running
	Killing
	Completing
	UnsuccessfulFinish
	SuccessfulFinish
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Killing:
		return "killing"
	case Completing:
		return "completing"
	case UnsuccessfulFinish:
		return "unsuccessful-finish"
	case SuccessfulFinish:
		return "successful-finish"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen from s.
func (s Status) Terminal() bool {
	return s == UnsuccessfulFinish || s == SuccessfulFinish
}
