package render

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/orbfield/logging"
	"github.com/gekko3d/orbfield/platform"
	"github.com/gekko3d/orbfield/render/shaders"
	"github.com/gekko3d/orbfield/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	sampleCount   = 4
	hdrFormat     = wgpu.TextureFormatRGBA16Float
	depthFormat   = wgpu.TextureFormatDepth24Plus
	instanceSlack = 64
)

// uniforms matches the WGSL Uniforms struct.
type uniforms struct {
	ViewProj   mgl32.Mat4
	CameraPos  [4]float32
	Ambient    [4]float32
	LightPos   [4]float32
	LightColor [4]float32
	Material   [4]float32
	Material2  [4]float32
}

type blitParams struct {
	Exposure   float32
	EncodeSRGB float32
	_          [2]float32
}

// instance matches the WGSL instance attributes.
type instance struct {
	Model mgl32.Mat4
	Color [4]float32
}

// webgpuClip maps OpenGL clip depth (-1..1) to WebGPU's 0..1.
var webgpuClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// GPU draws a Mesh with one instanced PBR pass into a multisampled HDR
// target at the clamped pixel ratio, then tone maps it onto the swapchain.
type GPU struct {
	gpu *platform.GPU
	log logging.Logger

	Exposure float32

	orbPipeline  *wgpu.RenderPipeline
	blitPipeline *wgpu.RenderPipeline
	sampler      *wgpu.Sampler

	uniformBuffer *wgpu.Buffer
	uniformGroup  *wgpu.BindGroup
	blitBuffer    *wgpu.Buffer
	blitGroup     *wgpu.BindGroup

	msaaTex     *wgpu.Texture
	msaaView    *wgpu.TextureView
	resolveTex  *wgpu.Texture
	resolveView *wgpu.TextureView
	depthTex    *wgpu.Texture
	depthView   *wgpu.TextureView
	width       uint32
	height      uint32

	mesh         *Mesh
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32

	instanceBuffer *wgpu.Buffer
	instanceCap    int
	staging        []instance

	disposed bool
}

func NewGPU(g *platform.GPU, log logging.Logger) (*GPU, error) {
	r := &GPU{gpu: g, log: logging.Or(log), Exposure: 1}
	if err := r.createPipelines(); err != nil {
		r.Dispose()
		return nil, err
	}
	return r, nil
}

func (r *GPU) createPipelines() error {
	dev := r.gpu.Device

	orbModule, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "OrbShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.OrbsWGSL},
	})
	if err != nil {
		return fmt.Errorf("orb shader: %w", err)
	}
	defer orbModule.Release()

	blitModule, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BlitShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlitWGSL},
	})
	if err != nil {
		return fmt.Errorf("blit shader: %w", err)
	}
	defer blitModule.Release()

	uniformLayout, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "OrbUniformBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(unsafe.Sizeof(uniforms{})),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("uniform layout: %w", err)
	}
	defer uniformLayout.Release()

	orbLayout, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "OrbPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("orb pipeline layout: %w", err)
	}
	defer orbLayout.Release()

	r.orbPipeline, err = dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "OrbPipeline",
		Layout: orbLayout,
		Vertex: wgpu.VertexState{
			Module:     orbModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
					},
				},
				{
					ArrayStride: uint64(unsafe.Sizeof(instance{})),
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 3},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 5},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 64, ShaderLocation: 6},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     orbModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: hdrFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("orb pipeline: %w", err)
	}

	r.blitPipeline, err = dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "BlitPipeline",
		Vertex: wgpu.VertexState{
			Module:     blitModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     blitModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: r.gpu.Format(), WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("blit pipeline: %w", err)
	}

	r.sampler, err = dev.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	r.uniformBuffer, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "OrbUniforms",
		Size:  uint64(unsafe.Sizeof(uniforms{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform buffer: %w", err)
	}
	r.uniformGroup, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "OrbUniformBG",
		Layout: r.orbPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.uniformBuffer, Size: uint64(unsafe.Sizeof(uniforms{}))},
		},
	})
	if err != nil {
		return fmt.Errorf("uniform bind group: %w", err)
	}

	r.blitBuffer, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "BlitParams",
		Size:  uint64(unsafe.Sizeof(blitParams{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("blit buffer: %w", err)
	}
	return nil
}

// Resize reconfigures the swapchain to the framebuffer and rebuilds the
// offscreen targets at the logical size times the clamped pixel ratio.
func (r *GPU) Resize(size scene.Size) {
	if r.disposed {
		return
	}
	r.gpu.Configure(r.gpu.FramebufferSize())

	w := uint32(float32(size.Width)*size.PixelRatio + 0.5)
	h := uint32(float32(size.Height)*size.PixelRatio + 0.5)
	if w == 0 || h == 0 || (w == r.width && h == r.height) {
		return
	}
	if err := r.createTargets(w, h); err != nil {
		r.releaseTargets()
		r.log.Errorf("render: resize to %dx%d: %v", w, h, err)
		return
	}
	r.log.Debugf("render: offscreen %dx%d (pixel ratio %.2f)", w, h, size.PixelRatio)
}

func (r *GPU) createTargets(w, h uint32) error {
	r.releaseTargets()
	dev := r.gpu.Device
	extent := wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	var err error
	r.msaaTex, err = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "OrbColorMSAA",
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        hdrFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	if r.msaaView, err = r.msaaTex.CreateView(nil); err != nil {
		return err
	}

	r.resolveTex, err = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "OrbColorResolve",
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        hdrFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return err
	}
	if r.resolveView, err = r.resolveTex.CreateView(nil); err != nil {
		return err
	}

	r.depthTex, err = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "OrbDepth",
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	if r.depthView, err = r.depthTex.CreateView(nil); err != nil {
		return err
	}

	r.blitGroup, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BlitBG",
		Layout: r.blitPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: r.resolveView},
			{Binding: 1, Sampler: r.sampler},
			{Binding: 2, Buffer: r.blitBuffer, Size: uint64(unsafe.Sizeof(blitParams{}))},
		},
	})
	if err != nil {
		return err
	}
	r.width, r.height = w, h
	return nil
}

func (r *GPU) releaseTargets() {
	for _, v := range []*wgpu.TextureView{r.msaaView, r.resolveView, r.depthView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{r.msaaTex, r.resolveTex, r.depthTex} {
		if t != nil {
			t.Release()
		}
	}
	if r.blitGroup != nil {
		r.blitGroup.Release()
	}
	r.msaaView, r.resolveView, r.depthView = nil, nil, nil
	r.msaaTex, r.resolveTex, r.depthTex = nil, nil, nil
	r.blitGroup = nil
	r.width, r.height = 0, 0
}

// SetMesh switches the drawn mesh, uploading its geometry.
func (r *GPU) SetMesh(m *Mesh) error {
	if r.disposed {
		return fmt.Errorf("render: renderer disposed")
	}
	r.Clear()
	if m == nil || len(m.Geometry.Indices) == 0 || len(m.Geometry.Vertices) == 0 {
		r.mesh = m
		return nil
	}
	dev := r.gpu.Device
	verts := m.Geometry.Vertices
	idx := m.Geometry.Indices

	vSize := uint64(len(verts)) * uint64(unsafe.Sizeof(Vertex{}))
	vb, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "OrbVertices",
		Size:  vSize,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	iSize := uint64(len(idx)) * 4
	ib, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "OrbIndices",
		Size:  iSize,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return fmt.Errorf("index buffer: %w", err)
	}
	err = r.gpu.Queue.WriteBuffer(vb, 0, unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), vSize))
	if err == nil {
		err = r.gpu.Queue.WriteBuffer(ib, 0, unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), iSize))
	}
	if err != nil {
		vb.Release()
		ib.Release()
		return fmt.Errorf("upload geometry: %w", err)
	}

	r.vertexBuffer, r.indexBuffer = vb, ib
	r.indexCount = uint32(len(idx))
	r.mesh = m
	m.TransformsDirty = true
	m.ColorsDirty = true
	return nil
}

func (r *GPU) uploadInstances() error {
	m := r.mesh
	n := m.Count()
	if n == 0 || (!m.TransformsDirty && !m.ColorsDirty) {
		return nil
	}
	if r.instanceBuffer == nil || r.instanceCap < n {
		if r.instanceBuffer != nil {
			r.instanceBuffer.Release()
		}
		r.instanceCap = n + instanceSlack
		buf, err := r.gpu.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "OrbInstances",
			Size:  uint64(r.instanceCap) * uint64(unsafe.Sizeof(instance{})),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			r.instanceBuffer, r.instanceCap = nil, 0
			return err
		}
		r.instanceBuffer = buf
	}

	r.staging = r.staging[:0]
	for i := 0; i < n; i++ {
		r.staging = append(r.staging, instance{Model: m.Transforms[i], Color: m.Colors[i]})
	}
	size := uint64(n) * uint64(unsafe.Sizeof(instance{}))
	if err := r.gpu.Queue.WriteBuffer(r.instanceBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&r.staging[0])), size)); err != nil {
		return err
	}
	m.TransformsDirty = false
	m.ColorsDirty = false
	return nil
}

func (r *GPU) writeUniforms(cam *scene.Camera) {
	m := r.mesh
	u := uniforms{
		ViewProj:   webgpuClip.Mul4(cam.ViewProjection()),
		CameraPos:  [4]float32{cam.Position[0], cam.Position[1], cam.Position[2], 1},
		Ambient:    m.Ambient.Color.Mul(m.Ambient.Intensity).Vec4(1),
		LightPos:   m.Light.Position.Vec4(m.Light.Intensity),
		LightColor: m.Light.Color.Vec4(1),
		Material: [4]float32{
			m.Material.Metalness, m.Material.Roughness,
			m.Material.Clearcoat, m.Material.ClearcoatRoughness,
		},
		Material2: [4]float32{m.Material.Transmission, m.Material.IOR, 0, 0},
	}
	_ = r.gpu.Queue.WriteBuffer(r.uniformBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&u)), unsafe.Sizeof(u)))

	p := blitParams{Exposure: r.Exposure}
	if !r.gpu.SRGB() {
		p.EncodeSRGB = 1
	}
	_ = r.gpu.Queue.WriteBuffer(r.blitBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&p)), unsafe.Sizeof(p)))
}

// Render draws one frame. Errors are logged; a failed frame is skipped.
func (r *GPU) Render(cam *scene.Camera) {
	if r.disposed || r.msaaView == nil {
		return
	}
	drawOrbs := r.mesh != nil && r.indexCount > 0 && r.mesh.Count() > 0
	if drawOrbs {
		if err := r.uploadInstances(); err != nil {
			r.log.Errorf("render: instance upload: %v", err)
			return
		}
		r.writeUniforms(cam)
	}

	next, err := r.gpu.Surface.GetCurrentTexture()
	if err != nil {
		r.log.Errorf("render: GetCurrentTexture failed: %v", err)
		return
	}
	defer next.Release()
	view, err := next.CreateView(nil)
	if err != nil {
		r.log.Errorf("render: CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := r.gpu.Device.CreateCommandEncoder(nil)
	if err != nil {
		r.log.Errorf("render: CreateCommandEncoder failed: %v", err)
		return
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "OrbPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          r.msaaView,
			ResolveTarget: r.resolveView,
			LoadOp:        wgpu.LoadOpClear,
			StoreOp:       wgpu.StoreOpStore,
			ClearValue:    wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	if drawOrbs {
		pass.SetPipeline(r.orbPipeline)
		pass.SetBindGroup(0, r.uniformGroup, nil)
		pass.SetVertexBuffer(0, r.vertexBuffer, 0, wgpu.WholeSize)
		pass.SetVertexBuffer(1, r.instanceBuffer, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(r.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(r.indexCount, uint32(r.mesh.Count()), 0, 0, 0)
	}
	if err := pass.End(); err != nil {
		r.log.Errorf("render: orb pass End failed: %v", err)
	}
	pass.Release()

	blit := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "BlitPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	blit.SetPipeline(r.blitPipeline)
	blit.SetBindGroup(0, r.blitGroup, nil)
	blit.Draw(3, 1, 0, 0)
	if err := blit.End(); err != nil {
		r.log.Errorf("render: blit pass End failed: %v", err)
	}
	blit.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		r.log.Errorf("render: encoder Finish failed: %v", err)
		return
	}
	defer cmd.Release()
	r.gpu.Queue.Submit(cmd)
	r.gpu.Surface.Present()
}

// Clear releases the current mesh's GPU buffers.
func (r *GPU) Clear() {
	for _, b := range []*wgpu.Buffer{r.vertexBuffer, r.indexBuffer, r.instanceBuffer} {
		if b != nil {
			b.Release()
		}
	}
	r.vertexBuffer, r.indexBuffer, r.instanceBuffer = nil, nil, nil
	r.indexCount = 0
	r.instanceCap = 0
	r.mesh = nil
}

// Dispose releases every GPU object the renderer created. The device itself
// belongs to the platform.
func (r *GPU) Dispose() {
	if r.disposed {
		return
	}
	r.Clear()
	r.releaseTargets()
	if r.uniformGroup != nil {
		r.uniformGroup.Release()
	}
	for _, b := range []*wgpu.Buffer{r.uniformBuffer, r.blitBuffer} {
		if b != nil {
			b.Release()
		}
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	for _, p := range []*wgpu.RenderPipeline{r.orbPipeline, r.blitPipeline} {
		if p != nil {
			p.Release()
		}
	}
	r.disposed = true
}
