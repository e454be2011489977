package hwbuffer

// memFactory creates MemoryBuffers and records them.
type memFactory struct {
	buffers []*MemoryBuffer
	fail    error
}

func (f *memFactory) create(label string, size uint64, d interface{ Validate() error }) (HardwareBuffer, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	b, err := NewMemoryBuffer(label, size, 0)
	if err != nil {
		return nil, err
	}
	f.buffers = append(f.buffers, b)
	return b, nil
}

func (f *memFactory) CreateVertexBuffer(d VertexBufferDesc) (HardwareBuffer, error) {
	return f.create(d.Label, d.Size(), d)
}

func (f *memFactory) CreateIndexBuffer(d IndexBufferDesc) (HardwareBuffer, error) {
	return f.create(d.Label, d.Size(), d)
}

func (f *memFactory) CreateGpuBuffer(d GpuBufferDesc) (HardwareBuffer, error) {
	return f.create(d.Label, d.Size(), d)
}

func (f *memFactory) CreateParamBlockBuffer(d ParamBlockDesc) (HardwareBuffer, error) {
	return f.create(d.Label, uint64(d.Size), d)
}
