package coreobject

import (
	"fmt"
	"strings"
)

// Flags control how an Object's lifecycle is scheduled.
type Flags uint32

const (
	// FlagDestroyed is set once Destroy has been called.
	FlagDestroyed Flags = 1 << iota
	// FlagRequiresCoreInit defers core initialization and destruction to
	// the core thread.
	FlagRequiresCoreInit
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// String returns the string representation of Flags.
func (f Flags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	if f.Has(FlagDestroyed) {
		parts = append(parts, "Destroyed")
	}
	if f.Has(FlagRequiresCoreInit) {
		parts = append(parts, "RequiresCoreInit")
	}
	if rest := f &^ (FlagDestroyed | FlagRequiresCoreInit); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// DirtyAll marks every core dirty bit.
const DirtyAll uint32 = ^uint32(0)

// State is the observable lifecycle state of an Object.
type State int

const (
	// StateConstructed means Initialize has not been called.
	StateConstructed State = iota
	// StateCoreInitPending means core initialization is queued but has not run.
	StateCoreInitPending
	// StateActive means the object is fully initialized.
	StateActive
	// StateDestroyed means Destroy has been called.
	StateDestroyed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateCoreInitPending:
		return "CoreInitPending"
	case StateActive:
		return "Active"
	case StateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
