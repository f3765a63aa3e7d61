//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/sprite.wgsl
var spriteShaderSource string

// DefaultShaderSource returns the built-in sprite WGSL shader.
func DefaultShaderSource() string { return spriteShaderSource }

const (
	// viewUniformSize is the byte size of the view uniform (mat4x4<f32>).
	viewUniformSize = 64

	// instanceStride is the byte size of one instance: three vec4<f32> rows.
	instanceStride = 48

	vertexEntryPoint   = "vertex"
	fragmentEntryPoint = "fragment"
)

// PipelineKey selects a pipeline variant. Every field must match the render
// target the pipeline draws into.
type PipelineKey struct {
	SampleCount uint32
	ColorFormat gputypes.TextureFormat
	// DepthFormat is TextureFormatUndefined when the target has no
	// depth/stencil attachment.
	DepthFormat gputypes.TextureFormat
}

// PipelineDescriptor is the full fixed-function and shader configuration
// of a sprite pipeline. It is built from a PipelineKey by Specialize and is
// a pure value: equal keys yield deeply equal descriptors.
type PipelineDescriptor struct {
	Label         string
	Layout        hal.PipelineLayout
	Shader        hal.ShaderModule
	VertexEntry   string
	FragmentEntry string
	Buffers       []gputypes.VertexBufferLayout
	Targets       []gputypes.ColorTargetState
	Primitive     gputypes.PrimitiveState
	DepthStencil  *hal.DepthStencilState
	Multisample   gputypes.MultisampleState
}

// SpritePipelineConfig configures the shared sprite pipeline resources.
type SpritePipelineConfig struct {
	// ShaderSource is WGSL with "vertex" and "fragment" entry points.
	// Empty selects the built-in shader.
	ShaderSource string

	// Filter is the sampler filter for sprite textures.
	Filter gputypes.FilterMode
}

// SpritePipeline owns the layouts, shader and sampler shared by every
// sprite pipeline variant.
type SpritePipeline struct {
	device hal.Device

	shader         hal.ShaderModule
	viewLayout     hal.BindGroupLayout
	spriteLayout   hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	sampler        hal.Sampler
}

// NewSpritePipeline creates the shader module, bind group layouts,
// pipeline layout and sampler. Pipelines themselves are built on demand by
// the PipelineCache.
func NewSpritePipeline(device hal.Device, cfg SpritePipelineConfig) (*SpritePipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	src := cfg.ShaderSource
	if src == "" {
		src = spriteShaderSource
	}

	p := &SpritePipeline{device: device}
	if err := p.create(src, cfg.Filter); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *SpritePipeline) create(src string, filter gputypes.FilterMode) error {
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "sprite_shader",
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return fmt.Errorf("compile sprite shader: %w", err)
	}
	p.shader = shader

	// Group 0: view uniform, vertex stage.
	viewLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sprite_view_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create view bind group layout: %w", err)
	}
	p.viewLayout = viewLayout

	// Group 1: sprite texture and sampler, fragment stage.
	spriteLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "sprite_material_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create sprite bind group layout: %w", err)
	}
	p.spriteLayout = spriteLayout

	pipelineLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "sprite_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.viewLayout, p.spriteLayout},
	})
	if err != nil {
		return fmt.Errorf("create sprite pipeline layout: %w", err)
	}
	p.pipelineLayout = pipelineLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "sprite_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return fmt.Errorf("create sprite sampler: %w", err)
	}
	p.sampler = sampler
	return nil
}

// ViewLayout returns the group 0 layout.
func (p *SpritePipeline) ViewLayout() hal.BindGroupLayout { return p.viewLayout }

// SpriteLayout returns the group 1 layout.
func (p *SpritePipeline) SpriteLayout() hal.BindGroupLayout { return p.spriteLayout }

// Sampler returns the shared sprite sampler.
func (p *SpritePipeline) Sampler() hal.Sampler { return p.sampler }

// Specialize returns the pipeline configuration for key.
func (p *SpritePipeline) Specialize(key PipelineKey) PipelineDescriptor {
	blend := gputypes.BlendStateAlpha()

	desc := PipelineDescriptor{
		Label:         "sprite_pipeline",
		Layout:        p.pipelineLayout,
		Shader:        p.shader,
		VertexEntry:   vertexEntryPoint,
		FragmentEntry: fragmentEntryPoint,
		Buffers: []gputypes.VertexBufferLayout{
			{
				ArrayStride: quadVertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				},
			},
			{
				ArrayStride: instanceStride,
				StepMode:    gputypes.VertexStepModeInstance,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 1},
					{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
					{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
				},
			},
		},
		Targets: []gputypes.ColorTargetState{
			{
				Format:    key.ColorFormat,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count:                  key.SampleCount,
			Mask:                   ^uint64(0),
			AlphaToCoverageEnabled: false,
		},
	}

	// Sprites are ordered by the phase sort; the depth attachment is carried
	// for target compatibility and is neither tested nor written.
	if key.DepthFormat != gputypes.TextureFormatUndefined {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            key.DepthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront:      keepStencil(),
			StencilBack:       keepStencil(),
			StencilReadMask:   0xFF,
			StencilWriteMask:  0,
		}
	}
	return desc
}

func keepStencil() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
}

// Build creates the GPU pipeline for desc.
func (p *SpritePipeline) Build(desc PipelineDescriptor) (hal.RenderPipeline, error) {
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: desc.Layout,
		Vertex: hal.VertexState{
			Module:     desc.Shader,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.Buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     desc.Shader,
			EntryPoint: desc.FragmentEntry,
			Targets:    desc.Targets,
		},
		DepthStencil: desc.DepthStencil,
		Multisample:  desc.Multisample,
		Primitive:    desc.Primitive,
	})
	if err != nil {
		return nil, fmt.Errorf("create sprite pipeline: %w", err)
	}
	return pipeline, nil
}

// DestroyPipeline releases a pipeline built by Build.
func (p *SpritePipeline) DestroyPipeline(pipeline hal.RenderPipeline) {
	if pipeline != nil {
		p.device.DestroyRenderPipeline(pipeline)
	}
}

// Destroy releases the shared resources in reverse creation order.
// Safe to call on a partially created pipeline.
func (p *SpritePipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.spriteLayout != nil {
		p.device.DestroyBindGroupLayout(p.spriteLayout)
		p.spriteLayout = nil
	}
	if p.viewLayout != nil {
		p.device.DestroyBindGroupLayout(p.viewLayout)
		p.viewLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
