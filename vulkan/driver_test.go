package vulkan

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/loader"
	"github.com/vkngwrapper/core/v3/mocks"
)

// recordingDriver implements the buffer and memory calls QuadBuffer makes.
// Any other call panics on the nil embedded driver.
type recordingDriver struct {
	core1_0.CoreDeviceDriver

	device  core1_0.Device
	buffers []core1_0.BufferCreateInfo
	allocs  []core1_0.MemoryAllocateInfo

	destroyedBuffers int
	freedMemory      int
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{device: mocks.NewDummyDevice(common.Vulkan1_0, nil)}
}

func (d *recordingDriver) CreateBuffer(_ *loader.AllocationCallbacks, o core1_0.BufferCreateInfo) (core1_0.Buffer, common.VkResult, error) {
	d.buffers = append(d.buffers, o)
	return mocks.NewDummyBuffer(d.device), core1_0.VKSuccess, nil
}

func (d *recordingDriver) GetBufferMemoryRequirements(core1_0.Buffer) *core1_0.MemoryRequirements {
	return &core1_0.MemoryRequirements{
		Size:           d.buffers[len(d.buffers)-1].Size,
		Alignment:      4,
		MemoryTypeBits: 0b11,
	}
}

func (d *recordingDriver) AllocateMemory(_ *loader.AllocationCallbacks, o core1_0.MemoryAllocateInfo) (core1_0.DeviceMemory, common.VkResult, error) {
	d.allocs = append(d.allocs, o)
	return mocks.NewDummyDeviceMemory(d.device, o.AllocationSize), core1_0.VKSuccess, nil
}

func (d *recordingDriver) BindBufferMemory(core1_0.Buffer, core1_0.DeviceMemory, int) (common.VkResult, error) {
	return core1_0.VKSuccess, nil
}

func (d *recordingDriver) DestroyBuffer(core1_0.Buffer, *loader.AllocationCallbacks) {
	d.destroyedBuffers++
}

func (d *recordingDriver) FreeMemory(core1_0.DeviceMemory, *loader.AllocationCallbacks) {
	d.freedMemory++
}

func newRecordingDevice() (*Device, *recordingDriver) {
	driver := newRecordingDriver()
	return NewDevice(driver, []core1_0.MemoryType{
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
	}), driver
}
