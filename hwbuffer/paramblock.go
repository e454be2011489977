package hwbuffer

import (
	"fmt"

	"github.com/gogpu/ggcore/coreobject"
	"github.com/gogpu/ggcore/internal/logging"
)

// ParamBlock is a block of shader parameters edited on the simulation
// thread. Changed bytes reach the device buffer owned by ParamBlockCore
// during the next frame sync.
type ParamBlock struct {
	*coreobject.Object

	factory Factory
	desc    ParamBlockDesc
	data    []byte

	// dirtyLo and dirtyHi bound the bytes written since the last sync.
	dirtyLo, dirtyHi uint32
}

// NewParamBlock creates and initializes a param block whose device buffer is
// created on the core thread.
func NewParamBlock(mgr *coreobject.Manager, factory Factory, desc ParamBlockDesc) (*ParamBlock, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	p := &ParamBlock{
		factory: factory,
		desc:    desc,
		data:    make([]byte, desc.Size),
	}
	p.Object = mgr.NewObject(p, desc.Label, coreobject.FlagRequiresCoreInit)
	if err := p.Initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

// Size returns the block size in bytes.
func (p *ParamBlock) Size() uint32 { return p.desc.Size }

// Write copies data into the block at offset.
func (p *ParamBlock) Write(offset uint32, data []byte) error {
	if err := CheckRange(uint64(p.desc.Size), uint64(offset), uint64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	copy(p.data[offset:], data)
	p.markDirty(offset, offset+uint32(len(data)))
	return nil
}

// Read copies block bytes at offset into dst.
func (p *ParamBlock) Read(offset uint32, dst []byte) error {
	if err := CheckRange(uint64(p.desc.Size), uint64(offset), uint64(len(dst))); err != nil {
		return err
	}
	copy(dst, p.data[offset:])
	return nil
}

// ZeroOut clears length bytes at offset.
func (p *ParamBlock) ZeroOut(offset, length uint32) error {
	if err := CheckRange(uint64(p.desc.Size), uint64(offset), uint64(length)); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	clear(p.data[offset : offset+length])
	p.markDirty(offset, offset+length)
	return nil
}

func (p *ParamBlock) markDirty(lo, hi uint32) {
	if p.dirtyLo == p.dirtyHi {
		p.dirtyLo, p.dirtyHi = lo, hi
	} else {
		p.dirtyLo = min(p.dirtyLo, lo)
		p.dirtyHi = max(p.dirtyHi, hi)
	}
	p.MarkCoreDirty(1)
}

// CreateCore implements coreobject.CoreCreator.
func (p *ParamBlock) CreateCore() coreobject.Core {
	return &ParamBlockCore{factory: p.factory, desc: p.desc}
}

// BuildSyncData implements coreobject.CoreSyncer. It ships the dirty byte range.
func (p *ParamBlock) BuildSyncData(alloc *coreobject.FrameAlloc) coreobject.SyncData {
	lo, hi := p.dirtyLo, p.dirtyHi
	p.dirtyLo, p.dirtyHi = 0, 0
	return coreobject.SyncData{
		Bytes: alloc.Copy(p.data[lo:hi]),
		Value: lo,
	}
}

// ParamBlockCore owns the device buffer of a ParamBlock. Core-thread only.
type ParamBlockCore struct {
	coreobject.CoreBase

	factory Factory
	desc    ParamBlockDesc
	buffer  HardwareBuffer
	err     error
}

// Initialize creates the device buffer.
func (c *ParamBlockCore) Initialize() {
	c.buffer, c.err = c.factory.CreateParamBlockBuffer(c.desc)
	if c.err != nil {
		logging.Logger().Warn("hwbuffer: param block buffer creation failed",
			"label", c.desc.Label, "err", c.err)
	}
	c.CoreBase.Initialize()
}

// Err returns the buffer creation error, if any.
func (c *ParamBlockCore) Err() error { return c.err }

// Buffer returns the device buffer, nil if creation failed.
func (c *ParamBlockCore) Buffer() HardwareBuffer { return c.buffer }

// SyncToCore writes the shipped byte range to the device buffer.
func (c *ParamBlockCore) SyncToCore(data coreobject.SyncData) {
	if c.buffer == nil || len(data.Bytes) == 0 {
		return
	}
	offset, _ := data.Value.(uint32)
	if err := c.buffer.WriteData(uint64(offset), data.Bytes, WriteNormal); err != nil {
		logging.Logger().Warn("hwbuffer: param block write failed",
			"label", c.desc.Label, "offset", offset, "err", err)
	}
}

// Read copies device buffer bytes into dst.
func (c *ParamBlockCore) Read(offset uint32, dst []byte) error {
	if c.buffer == nil {
		return fmt.Errorf("%w: param block %q has no buffer", ErrInvalidState, c.desc.Label)
	}
	return c.buffer.ReadData(uint64(offset), dst)
}

// Destroy releases the device buffer.
func (c *ParamBlockCore) Destroy() {
	if c.buffer != nil {
		c.buffer.Destroy()
		c.buffer = nil
	}
	c.CoreBase.Destroy()
}
