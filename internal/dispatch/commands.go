package dispatch

// Mode is how a subcommand's output is used.
type Mode int

const (
	// Direct runs cargo and returns its status
	Direct Mode = iota

	// Emulate builds with cargo, then runs the produced binaries
	Emulate
)

// CommandInfo describes how a cargo subcommand is dispatched.
type CommandInfo struct {
	Mode Mode

	// Whether the MSVC environment is assembled for the child
	NeedsEnv bool
}

// Commands is the dispatch table. Names not listed run directly with the
// environment assembled.
var Commands = map[string]CommandInfo{
	"build":    {Mode: Direct, NeedsEnv: true},
	"check":    {Mode: Direct, NeedsEnv: true},
	"clippy":   {Mode: Direct, NeedsEnv: true},
	"doc":      {Mode: Direct, NeedsEnv: true},
	"rustc":    {Mode: Direct, NeedsEnv: true},
	"bench":    {Mode: Direct, NeedsEnv: true},
	"run":      {Mode: Emulate, NeedsEnv: true},
	"test":     {Mode: Emulate, NeedsEnv: true},
	"metadata": {Mode: Direct},
	"fmt":      {Mode: Direct},
}

// aliases cargo accepts for built-in subcommands
var aliases = map[string]string{
	"b": "build",
	"c": "check",
	"d": "doc",
	"r": "run",
	"t": "test",
}

// Canonical expands cargo's short subcommand aliases
func Canonical(name string) string {
	if full, ok := aliases[name]; ok {
		return full
	}

	return name
}

// Lookup returns how name is dispatched
func Lookup(name string) CommandInfo {
	if info, ok := Commands[Canonical(name)]; ok {
		return info
	}

	return CommandInfo{Mode: Direct, NeedsEnv: true}
}
