package vulkan

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func (d *Device) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range d.memoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Errorf("no memory type matches filter %#x with properties %v", typeFilter, properties)
}

// createBuffer creates a buffer of size bytes with its own allocation. On
// failure nothing is left allocated.
func (d *Device) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := d.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memRequirements := d.driver.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := d.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		d.driver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := d.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		d.driver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	_, err = d.driver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		d.driver.FreeMemory(memory, nil)
		d.driver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}
	return buffer, memory, nil
}

// writeData copies the binary encoding of data into host-visible memory at
// offset.
func (d *Device) writeData(memory core1_0.DeviceMemory, offset int, data any) error {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return err
	}
	return d.writeBytes(memory, offset, buf.Bytes())
}

func (d *Device) writeBytes(memory core1_0.DeviceMemory, offset int, data []byte) error {
	memoryPtr, _, err := d.driver.MapMemory(memory, offset, len(data), 0)
	if err != nil {
		return err
	}
	defer d.driver.UnmapMemory(memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}
