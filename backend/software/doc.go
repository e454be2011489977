// Package software provides an in-memory render device.
//
// Buffers are plain byte slices (hwbuffer.MemoryBuffer). Queries never
// observe a real GPU: they complete when Device.Complete is called, or
// immediately when the device is created WithAutoComplete. This makes the
// device the reference fake for testing code that waits on the GPU.
//
// The package registers itself as the "software" backend on import.
package software
