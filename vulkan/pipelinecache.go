package vulkan

import (
	"bytes"
	"encoding/binary"
	"log"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// CacheIdentity is what a pipeline cache blob must have been written by to
// be reused: the physical device's vendor, device and pipeline cache UUID.
type CacheIdentity struct {
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

// IdentityOf reads the cache identity out of physical device properties.
func IdentityOf(props *core1_0.PhysicalDeviceProperties) CacheIdentity {
	return CacheIdentity{
		VendorID: props.VendorID,
		DeviceID: props.DeviceID,
		UUID:     props.PipelineCacheUUID,
	}
}

// checkCacheHeader validates the version one header at the front of a
// pipeline cache blob:
//
//	offset  size  meaning
//	     0     4  header length in bytes
//	     4     4  header version
//	     8     4  vendor ID
//	    12     4  device ID
//	    16    16  pipeline cache UUID
func checkCacheHeader(data []byte, want CacheIdentity) error {
	var headerLength, vendorID, deviceID uint32
	var version core1_0.PipelineCacheHeaderVersion
	var cacheUUID uuid.UUID

	reader := bytes.NewReader(data)
	for _, field := range []any{&headerLength, &version, &vendorID, &deviceID, &cacheUUID} {
		err := binary.Read(reader, common.ByteOrder, field)
		if err != nil {
			return errors.Wrap(err, "truncated pipeline cache header")
		}
	}

	var err error
	if headerLength == 0 {
		err = errors.CombineErrors(err, errors.Errorf("bad header length %#x", headerLength))
	}
	if version != core1_0.PipelineCacheHeaderVersionOne {
		err = errors.CombineErrors(err, errors.Errorf("unsupported header version %#x", uint32(version)))
	}
	if vendorID != want.VendorID {
		err = errors.CombineErrors(err, errors.Errorf("vendor ID mismatch: cache has %#x, driver expects %#x", vendorID, want.VendorID))
	}
	if deviceID != want.DeviceID {
		err = errors.CombineErrors(err, errors.Errorf("device ID mismatch: cache has %#x, driver expects %#x", deviceID, want.DeviceID))
	}
	if cacheUUID != want.UUID {
		err = errors.CombineErrors(err, errors.Errorf("UUID mismatch: cache has %s, driver expects %s", cacheUUID, want.UUID))
	}
	return err
}

// LoadPipelineCache creates a pipeline cache seeded from the blob at path.
// A missing file starts an empty cache. A blob written for another driver or
// device is removed and an empty cache is created in its place.
func LoadPipelineCache(device *Device, path string, identity CacheIdentity) (core1_0.PipelineCache, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("pipeline cache %s not found, starting empty", path)
		data = nil
	case err != nil:
		return core1_0.PipelineCache{}, errors.Wrapf(err, "read pipeline cache %s", path)
	default:
		if headerErr := checkCacheHeader(data, identity); headerErr != nil {
			log.Printf("discarding pipeline cache %s: %v", path, headerErr)
			_ = os.Remove(path)
			data = nil
		}
	}

	cache, _, err := device.driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: data,
	})
	if err != nil {
		return core1_0.PipelineCache{}, errors.Wrap(err, "create pipeline cache")
	}
	return cache, nil
}

// SavePipelineCache writes the cache's current contents to path.
func SavePipelineCache(device *Device, cache core1_0.PipelineCache, path string) error {
	data, _, err := device.driver.GetPipelineCacheData(cache)
	if err != nil {
		return errors.Wrap(err, "read pipeline cache data")
	}

	err = os.WriteFile(path, data, 0666)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", path)
	}
	log.Printf("pipeline cache written to %s (%d bytes)", path, len(data))
	return nil
}
