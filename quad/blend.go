package quad

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// BlendVariant selects how the quad is blended over the render target.
type BlendVariant int

const (
	// SourceAlpha blends with the texture's own alpha.
	SourceAlpha BlendVariant = iota
	// ConstantAlpha blends with the alpha of the dynamic blend constants.
	ConstantAlpha

	blendVariantCount
)

type blendFactors struct {
	src, dst core1_0.BlendFactor
}

var blendTable = [blendVariantCount]blendFactors{
	SourceAlpha:   {src: core1_0.BlendFactorSrcAlpha, dst: core1_0.BlendFactorOneMinusSrcAlpha},
	ConstantAlpha: {src: core1_0.BlendFactorConstantAlpha, dst: core1_0.BlendFactorOneMinusConstantAlpha},
}

var blendNames = [blendVariantCount]string{
	SourceAlpha:   "source-alpha",
	ConstantAlpha: "constant-alpha",
}

func (v BlendVariant) valid() bool {
	return v >= 0 && v < blendVariantCount
}

func (v BlendVariant) String() string {
	if !v.valid() {
		return "BlendVariant(" + strconv.Itoa(int(v)) + ")"
	}
	return blendNames[v]
}

// ParseBlendVariant accepts the names printed by BlendVariant.String.
func ParseBlendVariant(s string) (BlendVariant, error) {
	for v, name := range blendNames {
		if strings.EqualFold(s, name) {
			return BlendVariant(v), nil
		}
	}
	return 0, errors.Errorf("unknown blend variant %q", s)
}

// colorBlendState uses the same factor pair for color and alpha, combined
// additively, with all four channels written.
func colorBlendState(v BlendVariant) *core1_0.PipelineColorBlendStateCreateInfo {
	factors := blendTable[v]
	return &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpNoop,

		BlendConstants: [4]float32{1, 1, 1, 1},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:        true,
				SrcColorBlendFactor: factors.src,
				DstColorBlendFactor: factors.dst,
				ColorBlendOp:        core1_0.BlendOpAdd,
				SrcAlphaBlendFactor: factors.src,
				DstAlphaBlendFactor: factors.dst,
				AlphaBlendOp:        core1_0.BlendOpAdd,
				ColorWriteMask:      core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}
}
