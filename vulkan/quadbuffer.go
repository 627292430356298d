package vulkan

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/gpu"
	"github.com/vkngwrapper/quad/quad"
)

// FrameIndexer reports the swap frame currently being recorded.
type FrameIndexer interface {
	CurrentFrameIndex() int
	SwapFrameCount() int
}

// regionSize is the byte size of one quad's vertices.
const regionSize = quad.VertexCount * int(unsafe.Sizeof(quad.Vertex{}))

// QuadBuffer is a host-visible vertex buffer with one quad-sized region per
// swap frame. Update writes the region of the current frame and Bind binds
// it, so a frame never overwrites vertices another frame in flight reads.
type QuadBuffer struct {
	device *Device
	frames FrameIndexer

	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	bound  int
}

// NewQuadBuffer allocates frames.SwapFrameCount() regions.
func NewQuadBuffer(device *Device, frames FrameIndexer) (*QuadBuffer, error) {
	count := frames.SwapFrameCount()
	if count <= 0 {
		return nil, errors.Errorf("quad buffer needs at least one swap frame, got %d", count)
	}

	buffer, memory, err := device.createBuffer(count*regionSize,
		core1_0.BufferUsageVertexBuffer,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "create quad vertex buffer")
	}

	return &QuadBuffer{
		device: device,
		frames: frames,
		buffer: buffer,
		memory: memory,
	}, nil
}

func (b *QuadBuffer) offset() int {
	return b.frames.CurrentFrameIndex() * regionSize
}

// encodeVertices lays vertices out as the quad pipeline's vertex input
// state expects.
func encodeVertices(vertices *[quad.VertexCount]quad.Vertex) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, regionSize))
	err := binary.Write(buf, common.ByteOrder, vertices)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *QuadBuffer) Update(vertices *[quad.VertexCount]quad.Vertex) error {
	data, err := encodeVertices(vertices)
	if err != nil {
		return err
	}
	b.bound = b.offset()
	return b.device.writeBytes(b.memory, b.bound, data)
}

func (b *QuadBuffer) Bind(cmd gpu.CommandBuffer) {
	b.device.driver.CmdBindVertexBuffers(cmd.(core1_0.CommandBuffer), 0, []core1_0.Buffer{b.buffer}, []int{b.bound})
}

func (b *QuadBuffer) Draw(cmd gpu.CommandBuffer) {
	b.device.driver.CmdDraw(cmd.(core1_0.CommandBuffer), quad.VertexCount, 1, 0, 0)
}

func (b *QuadBuffer) Destroy() {
	if b.buffer.Initialized() {
		b.device.driver.DestroyBuffer(b.buffer, nil)
		b.buffer = core1_0.Buffer{}
	}
	if b.memory.Initialized() {
		b.device.driver.FreeMemory(b.memory, nil)
		b.memory = core1_0.DeviceMemory{}
	}
}
