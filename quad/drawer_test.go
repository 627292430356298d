package quad

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyFixture(t *testing.T, frames int) *fixture {
	f := newFixture(frames)
	require.NoError(t, f.pipeline.Init(fakeShaders{}, targetR0))
	require.NoError(t, f.pipeline.CreatePipeline(SourceAlpha))
	f.device.events = nil
	return f
}

func TestAcquireSlotAllocatesOncePerFrame(t *testing.T) {
	const frames = 4
	f := readyFixture(t, frames)
	assert.Equal(t, frames, f.drawer.Slots())

	first := make([]interface{}, frames)
	for i := 0; i < frames; i++ {
		assert.False(t, f.drawer.Allocated(i))
		set, err := f.drawer.AcquireSlot(i)
		require.NoError(t, err)
		first[i] = set
		assert.True(t, f.drawer.Allocated(i))
	}
	require.Len(t, f.device.allocations, frames)

	for i := frames - 1; i >= 0; i-- {
		set, err := f.drawer.AcquireSlot(i)
		require.NoError(t, err)
		assert.Same(t, first[i], set)
	}
	assert.Len(t, f.device.allocations, frames)

	for _, alloc := range f.device.allocations {
		assert.Equal(t, fakePool, alloc.pool)
		assert.Same(t, f.pipeline.DescriptorSetLayout(), alloc.layout)
	}
}

func TestAcquireSlotOutOfRange(t *testing.T) {
	f := readyFixture(t, 2)

	for _, frame := range []int{-1, 2, 10} {
		_, err := f.drawer.AcquireSlot(frame)
		require.Error(t, err)
		assert.True(t, errors.HasAssertionFailure(err), "frame %d", frame)
		assert.False(t, f.drawer.Allocated(frame))
	}
	assert.Empty(t, f.device.allocations)
}

func TestAcquireSlotAllocationFailure(t *testing.T) {
	f := readyFixture(t, 2)
	f.device.fail["AllocateDescriptorSet"] = errOutOfMemory

	_, err := f.drawer.AcquireSlot(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errOutOfMemory))
	assert.False(t, f.drawer.Allocated(1))

	delete(f.device.fail, "AllocateDescriptorSet")
	_, err = f.drawer.AcquireSlot(1)
	require.NoError(t, err)
	assert.True(t, f.drawer.Allocated(1))
}

func TestDrawProtocolOrder(t *testing.T) {
	f := readyFixture(t, 2)
	f.ctx.frame = 1

	vertices := NewQuad(-1, -1, 2, 2)
	require.NoError(t, f.drawer.Draw("cmd", "tex0", &vertices, false))

	set := f.device.allocations[0].set
	state := f.pipeline.State(SourceAlpha)
	assert.Equal(t, []string{
		"allocate " + set.String(),
		"write " + set.String() + " tex0",
		"bind pipeline " + state.(*fakeObject).String(),
		"bind set " + set.String(),
		"buffer update",
		"buffer bind",
		"buffer draw",
	}, f.device.events)
	assert.Equal(t, vertices, f.buffer.vertices)
	assert.True(t, f.drawer.Allocated(1))
	assert.False(t, f.drawer.Allocated(0))
}

func TestDrawSelectsSampler(t *testing.T) {
	f := readyFixture(t, 1)
	vertices := NewQuad(0, 0, 1, 1)

	require.NoError(t, f.drawer.Draw("cmd", "tex0", &vertices, true))
	require.NoError(t, f.drawer.Draw("cmd", "tex0", &vertices, false))

	require.Len(t, f.device.writes, 2)
	assert.Same(t, f.pipeline.Sampler(true), f.device.writes[0].sampler)
	assert.Same(t, f.pipeline.Sampler(false), f.device.writes[1].sampler)
	assert.NotSame(t, f.device.writes[0].sampler, f.device.writes[1].sampler)
	assert.Equal(t, 0, f.device.writes[0].binding)
}

func TestDrawUsesSelectedBlend(t *testing.T) {
	f := readyFixture(t, 1)
	vertices := NewQuad(0, 0, 1, 1)

	f.drawer.SetBlend(ConstantAlpha)
	assert.Equal(t, ConstantAlpha, f.drawer.Blend())
	err := f.drawer.Draw("cmd", "tex0", &vertices, false)
	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))
	assert.Empty(t, f.device.events)

	require.NoError(t, f.pipeline.CreatePipeline(ConstantAlpha))
	f.device.events = nil
	require.NoError(t, f.drawer.Draw("cmd", "tex0", &vertices, false))
	state := f.pipeline.State(ConstantAlpha).(*fakeObject)
	assert.Contains(t, f.device.events, "bind pipeline "+state.String())
}

func TestDrawPropagatesFailures(t *testing.T) {
	vertices := NewQuad(0, 0, 1, 1)

	t.Run("descriptor write", func(t *testing.T) {
		f := readyFixture(t, 1)
		f.device.fail["WriteCombinedImageSampler"] = errOutOfMemory
		err := f.drawer.Draw("cmd", "tex0", &vertices, false)
		assert.True(t, errors.Is(err, errOutOfMemory))
		assert.Zero(t, f.buffer.updates)
	})

	t.Run("vertex upload", func(t *testing.T) {
		f := readyFixture(t, 1)
		f.buffer.fail = errOutOfMemory
		err := f.drawer.Draw("cmd", "tex0", &vertices, false)
		assert.True(t, errors.Is(err, errOutOfMemory))
		assert.NotContains(t, f.device.events, "buffer draw")
	})
}

func TestDrawAcrossSwapFrames(t *testing.T) {
	f := newFixture(3)
	require.NoError(t, f.pipeline.Init(fakeShaders{}, targetR0))
	require.NoError(t, f.pipeline.CreatePipeline(SourceAlpha))
	vertices := NewQuad(-1, -1, 2, 2)

	views := []string{"tex0", "tex1", "tex2"}
	for frame, view := range views {
		f.ctx.frame = frame
		require.NoError(t, f.drawer.Draw("cmd", view, &vertices, false))
	}

	require.Len(t, f.device.allocations, 3)
	sets := map[interface{}]bool{}
	for i, alloc := range f.device.allocations {
		sets[alloc.set] = true
		assert.Same(t, alloc.set, f.device.writes[i].set)
		assert.Equal(t, views[i], f.device.writes[i].view)
	}
	assert.Len(t, sets, 3)

	f.ctx.frame = 0
	require.NoError(t, f.drawer.Draw("cmd", "tex3", &vertices, true))

	assert.Len(t, f.device.allocations, 3)
	require.Len(t, f.device.writes, 4)
	last := f.device.writes[3]
	assert.Same(t, f.device.allocations[0].set, last.set)
	assert.Equal(t, "tex3", last.view)
	assert.Same(t, f.pipeline.Sampler(true), last.sampler)
	assert.Equal(t, 4, f.buffer.updates)
}
