// Package coreobject implements the dual representation of GPU-backed
// objects: an [Object] owned by the simulation thread and a [Core] that
// lives on, and is only touched by, the core thread.
//
// A resource type embeds *Object and implements the capabilities it needs:
//
//   - [CoreCreator]: builds the core half. Required for any object with a
//     core counterpart.
//   - [CoreSyncer]: packages simulation-side changes for the core half.
//   - [DependencyProvider]: lists objects that must sync before this one.
//
// Lifecycle:
//
//	Constructed -> CoreInitPending -> Active -> Destroyed
//	Constructed -> Active (no core init required) -> Destroyed
//
// Initialization goes through the core thread's primary queue, destruction
// through an accessor, so a destroy always runs after commands queued
// earlier through the same accessor.
package coreobject
