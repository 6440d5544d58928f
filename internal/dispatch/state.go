package dispatch

// State is a step of one dispatch.
type State int

const (
	Idle State = iota
	ResolvingTargets
	AcquiringSdk
	AssemblingEnvironment
	GeneratingToolchain
	InvokingBuildTool
	InvokingEmulation
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResolvingTargets:
		return "resolving targets"
	case AcquiringSdk:
		return "acquiring sdk"
	case AssemblingEnvironment:
		return "assembling environment"
	case GeneratingToolchain:
		return "generating toolchain"
	case InvokingBuildTool:
		return "invoking build tool"
	case InvokingEmulation:
		return "invoking emulation"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
