package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/gpu"
)

// ShaderSet holds the quad's vertex and fragment shader modules and
// implements quad.ShaderProvider.
type ShaderSet struct {
	device   *Device
	vertex   core1_0.ShaderModule
	fragment core1_0.ShaderModule
}

// NewShaderSet creates both modules from SPIR-V bytes.
func NewShaderSet(device *Device, vertexSPIRV, fragmentSPIRV []byte) (*ShaderSet, error) {
	vertex, err := device.CreateShaderModule(vertexSPIRV)
	if err != nil {
		return nil, errors.Wrap(err, "create vertex shader")
	}

	fragment, err := device.CreateShaderModule(fragmentSPIRV)
	if err != nil {
		device.driver.DestroyShaderModule(vertex, nil)
		return nil, errors.Wrap(err, "create fragment shader")
	}

	return &ShaderSet{device: device, vertex: vertex, fragment: fragment}, nil
}

func (s *ShaderSet) VertexShader() gpu.ShaderModule   { return s.vertex }
func (s *ShaderSet) FragmentShader() gpu.ShaderModule { return s.fragment }

// Destroy releases both modules. Pipelines already built from them stay
// valid.
func (s *ShaderSet) Destroy() {
	s.device.driver.DestroyShaderModule(s.vertex, nil)
	s.device.driver.DestroyShaderModule(s.fragment, nil)
}
