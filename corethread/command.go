package corethread

import "fmt"

// CommandKind tags a Command with the reason it was queued. The core thread
// keeps per-kind counters; execution itself treats every kind the same way.
type CommandKind uint8

const (
	// CommandGeneric is an arbitrary GPU command.
	CommandGeneric CommandKind = iota
	// CommandInit initializes the core half of an object.
	CommandInit
	// CommandDestroy tears down the core half of an object.
	CommandDestroy
	// CommandSync applies simulation-side changes to the core half.
	CommandSync
	// CommandReturn computes a value delivered through an AsyncOp.
	CommandReturn

	commandKindCount
)

// String returns the string representation of CommandKind.
func (k CommandKind) String() string {
	switch k {
	case CommandGeneric:
		return "Generic"
	case CommandInit:
		return "Init"
	case CommandDestroy:
		return "Destroy"
	case CommandSync:
		return "Sync"
	case CommandReturn:
		return "Return"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Command is one unit of work for the core thread.
type Command struct {
	// Kind classifies the command.
	Kind CommandKind

	// Label is an optional debug name.
	Label string

	// Run is executed on the core thread. Must not be nil.
	Run func()
}

// NewCommand creates a command of the given kind.
func NewCommand(kind CommandKind, label string, run func()) Command {
	if run == nil {
		panic("corethread: command " + label + " has nil Run")
	}
	return Command{Kind: kind, Label: label, Run: run}
}
