package quad

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/gpu"
)

// fakeObject stands in for every device-created object. Pointers keep each
// one distinct.
type fakeObject struct {
	kind      string
	id        int
	destroyed bool
	log       *[]string
}

func (o *fakeObject) Destroy() {
	o.destroyed = true
	*o.log = append(*o.log, "destroy "+o.String())
}

func (o *fakeObject) String() string {
	return fmt.Sprintf("%s#%d", o.kind, o.id)
}

type fakeAllocation struct {
	pool   gpu.DescriptorPool
	layout gpu.DescriptorSetLayout
	set    *fakeObject
}

type fakeWrite struct {
	set     gpu.DescriptorSet
	binding int
	sampler gpu.Sampler
	view    gpu.ImageView
}

type fakePipelineCall struct {
	cache gpu.PipelineCache
	desc  gpu.GraphicsPipelineDesc
	state *fakeObject
}

type fakeDevice struct {
	events []string
	nextID int

	// fail makes the named operation return an error.
	fail map[string]error

	setLayouts   []*fakeObject
	layouts      []*fakeObject
	samplers     []*fakeObject
	samplerInfos []core1_0.SamplerCreateInfo
	bindings     [][]core1_0.DescriptorSetLayoutBinding
	pipelines    []fakePipelineCall
	allocations  []fakeAllocation
	writes       []fakeWrite
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{fail: map[string]error{}}
}

func (d *fakeDevice) object(kind string) *fakeObject {
	d.nextID++
	return &fakeObject{kind: kind, id: d.nextID, log: &d.events}
}

func (d *fakeDevice) record(format string, args ...interface{}) {
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) CreateDescriptorSetLayout(bindings ...core1_0.DescriptorSetLayoutBinding) (gpu.DescriptorSetLayout, error) {
	if err := d.fail["CreateDescriptorSetLayout"]; err != nil {
		return nil, err
	}
	o := d.object("setlayout")
	d.setLayouts = append(d.setLayouts, o)
	d.bindings = append(d.bindings, bindings)
	d.record("create %s", o)
	return o, nil
}

func (d *fakeDevice) CreatePipelineLayout(setLayouts ...gpu.DescriptorSetLayout) (gpu.PipelineLayout, error) {
	if err := d.fail["CreatePipelineLayout"]; err != nil {
		return nil, err
	}
	o := d.object("layout")
	d.layouts = append(d.layouts, o)
	d.record("create %s", o)
	return o, nil
}

func (d *fakeDevice) CreateSampler(info core1_0.SamplerCreateInfo) (gpu.Sampler, error) {
	// Sampler failures hit the second (linear) sampler so cleanup of the
	// first one can be observed.
	if err := d.fail["CreateSampler"]; err != nil && len(d.samplers)%2 == 1 {
		return nil, err
	}
	o := d.object("sampler")
	d.samplers = append(d.samplers, o)
	d.samplerInfos = append(d.samplerInfos, info)
	d.record("create %s", o)
	return o, nil
}

func (d *fakeDevice) CreateGraphicsPipeline(cache gpu.PipelineCache, desc gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	if err := d.fail["CreateGraphicsPipeline"]; err != nil {
		return nil, err
	}
	o := d.object("pipeline")
	d.pipelines = append(d.pipelines, fakePipelineCall{cache: cache, desc: desc, state: o})
	d.record("create %s", o)
	return o, nil
}

func (d *fakeDevice) AllocateDescriptorSet(pool gpu.DescriptorPool, layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	if err := d.fail["AllocateDescriptorSet"]; err != nil {
		return nil, err
	}
	o := d.object("set")
	d.allocations = append(d.allocations, fakeAllocation{pool: pool, layout: layout, set: o})
	d.record("allocate %s", o)
	return o, nil
}

func (d *fakeDevice) WriteCombinedImageSampler(set gpu.DescriptorSet, binding int, sampler gpu.Sampler, view gpu.ImageView) error {
	if err := d.fail["WriteCombinedImageSampler"]; err != nil {
		return err
	}
	d.writes = append(d.writes, fakeWrite{set: set, binding: binding, sampler: sampler, view: view})
	d.record("write %s %v", set, view)
	return nil
}

func (d *fakeDevice) CmdBindPipeline(cmd gpu.CommandBuffer, pipeline gpu.Pipeline) {
	d.record("bind pipeline %s", pipeline)
}

func (d *fakeDevice) CmdBindDescriptorSets(cmd gpu.CommandBuffer, layout gpu.PipelineLayout, sets ...gpu.DescriptorSet) {
	d.record("bind set %s", sets[0])
}

type fakeContext struct {
	device *fakeDevice
	frame  int
	frames int
}

const (
	fakePool  = "pool"
	fakeCache = "cache"
)

func (c *fakeContext) Device() gpu.Device                 { return c.device }
func (c *fakeContext) PipelineCache() gpu.PipelineCache   { return fakeCache }
func (c *fakeContext) DescriptorPool() gpu.DescriptorPool { return fakePool }
func (c *fakeContext) CurrentFrameIndex() int             { return c.frame }
func (c *fakeContext) SwapFrameCount() int                { return c.frames }

type fakeShaders struct{}

func (fakeShaders) VertexShader() gpu.ShaderModule   { return "quad.vert" }
func (fakeShaders) FragmentShader() gpu.ShaderModule { return "quad.frag" }

type fakeBuffer struct {
	device   *fakeDevice
	vertices [VertexCount]Vertex
	updates  int
	fail     error
}

func (b *fakeBuffer) Update(vertices *[VertexCount]Vertex) error {
	if b.fail != nil {
		return b.fail
	}
	b.vertices = *vertices
	b.updates++
	b.device.record("buffer update")
	return nil
}

func (b *fakeBuffer) Bind(cmd gpu.CommandBuffer) {
	b.device.record("buffer bind")
}

func (b *fakeBuffer) Draw(cmd gpu.CommandBuffer) {
	b.device.record("buffer draw")
}

var errOutOfMemory = errors.New("VK_ERROR_OUT_OF_DEVICE_MEMORY")

// fixture wires a pipeline and drawer over the fakes with frames swap frames.
type fixture struct {
	device   *fakeDevice
	ctx      *fakeContext
	buffer   *fakeBuffer
	pipeline *Pipeline
	drawer   *Drawer
}

func newFixture(frames int) *fixture {
	device := newFakeDevice()
	ctx := &fakeContext{device: device, frames: frames}
	buffer := &fakeBuffer{device: device}
	pipeline := NewPipeline(ctx)
	return &fixture{
		device:   device,
		ctx:      ctx,
		buffer:   buffer,
		pipeline: pipeline,
		drawer:   NewDrawer(ctx, pipeline, buffer),
	}
}
