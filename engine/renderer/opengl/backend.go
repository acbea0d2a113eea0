//go:build !js

// Package opengl is the desktop OpenGL 3.3 core backend. Sprites are drawn
// as an instanced triangle strip quad: one shared corner buffer, one
// per-group instance buffer refilled every batch.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/internal/glsl"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

func init() {
	renderer.Register(renderer.BackendGL, func() renderer.RendererBackend {
		return New()
	})
}

const maxInstancesPerBuffer = 8192

// glTexture is the backend native object stored in Texture.InternalData.
type glTexture struct {
	id uint32
}

// glGroup is the backend native object stored in SpriteGroup.InternalData:
// a VAO wiring the shared quad plus the group's own instance buffer.
type glGroup struct {
	vao       uint32
	instances uint32
	// capacityBytes is the allocated size of the instance buffer.
	capacityBytes int
}

type Backend struct {
	state   renderer.State
	surface renderer.Surface
	limits  renderer.BackendLimits

	width, height uint32
	pendingResize *[2]uint32

	program         uint32
	quad            uint32
	uViewProjection int32

	// bound state cache, avoids redundant binds inside a frame
	boundVAO     uint32
	boundProgram uint32

	// staging for instance packing, reused across uploads
	scratch []float32
}

func New() *Backend {
	return &Backend{state: renderer.StateUninitialized}
}

func (b *Backend) Name() string {
	return renderer.BackendGL
}

func (b *Backend) State() renderer.State {
	return b.state
}

func (b *Backend) ensure(states ...renderer.State) error {
	for _, s := range states {
		if b.state == s {
			return nil
		}
	}
	return fmt.Errorf("gl backend is %s: %w", b.state, core.ErrBackendNotReady)
}

func (b *Backend) Initialize(surface renderer.Surface, _ renderer.BackendConfig) error {
	if err := b.ensure(renderer.StateUninitialized); err != nil {
		return err
	}
	b.surface = surface
	surface.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("load gl functions: %w: %s", core.ErrContextCreationFailed, err.Error())
	}

	var units int32
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &units)
	if units < 1 {
		units = 1
	}
	b.limits = renderer.BackendLimits{
		MaxBoundTextureUnits:  int(units),
		MaxInstancesPerBuffer: maxInstancesPerBuffer,
	}

	program, err := buildProgram(b.limits.MaxBoundTextureUnits)
	if err != nil {
		return fmt.Errorf("sprite program: %w: %s", core.ErrContextCreationFailed, err.Error())
	}
	b.program = program
	b.uViewProjection = gl.GetUniformLocation(program, gl.Str("uViewProjection\x00"))

	// the sampler array binding never changes: unit i samples slot i
	gl.UseProgram(program)
	samplers := make([]int32, b.limits.MaxBoundTextureUnits)
	for i := range samplers {
		samplers[i] = int32(i)
	}
	gl.Uniform1iv(gl.GetUniformLocation(program, gl.Str("uTextures\x00")), int32(len(samplers)), &samplers[0])
	b.boundProgram = program

	gl.GenBuffers(1, &b.quad)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quad)
	gl.BufferData(gl.ARRAY_BUFFER, len(glsl.QuadCorners)*4, gl.Ptr(glsl.QuadCorners), gl.STATIC_DRAW)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)

	b.width, b.height = surface.FramebufferSize()
	gl.Viewport(0, 0, int32(b.width), int32(b.height))

	b.state = renderer.StateReady
	core.LogInfo("gl backend ready: %s, %d texture units",
		gl.GoStr(gl.GetString(gl.VERSION)), b.limits.MaxBoundTextureUnits)
	return nil
}

func (b *Backend) Shutdown() error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	gl.DeleteProgram(b.program)
	gl.DeleteBuffers(1, &b.quad)
	b.program = 0
	b.quad = 0
	b.state = renderer.StateTornDown
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gl backend resize %dx%d: %w", width, height, core.ErrInvalidViewport)
	}
	if b.state == renderer.StateSubmitting {
		// the in-flight frame completes against the old viewport
		b.pendingResize = &[2]uint32{width, height}
		return nil
	}
	b.applyViewport(width, height)
	return nil
}

func (b *Backend) applyViewport(width, height uint32) {
	b.width, b.height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (b *Backend) Limits() renderer.BackendLimits {
	return b.limits
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	filter := int32(gl.LINEAR)
	if texture.Filter == metadata.TextureFilterNearest {
		filter = gl.NEAREST
	}
	wrap := int32(gl.CLAMP_TO_EDGE)
	if texture.Wrap == metadata.TextureWrapRepeat {
		wrap = gl.REPEAT
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)

	var ptr interface{}
	if pixels != nil {
		ptr = pixels
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(texture.Width), int32(texture.Height),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(ptr))

	texture.InternalData = &glTexture{id: id}
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("texture %q has no gl object: %w", texture.Name, core.ErrInvalidResource)
	}
	gl.DeleteTextures(1, &t.id)
	texture.InternalData = nil
	return nil
}

func (b *Backend) TextureWriteData(texture *metadata.Texture, region metadata.Region, pixels []uint8) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("texture %q has no gl object: %w", texture.Name, core.ErrInvalidResource)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(region.X), int32(region.Y),
		int32(region.Width), int32(region.Height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return nil
}

func (b *Backend) TextureResize(texture *metadata.Texture, width, height uint32, pixels []uint8) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("texture %q has no gl object: %w", texture.Name, core.ErrInvalidResource)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	var ptr interface{}
	if pixels != nil {
		ptr = pixels
	}
	// TexImage2D on a live object reallocates the storage without touching
	// the texture name, so bound handles survive the resize.
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(ptr))
	return nil
}

func (b *Backend) SpriteGroupCreate(group *metadata.SpriteGroup) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}

	capacity := int(group.Capacity)
	if capacity > maxInstancesPerBuffer {
		capacity = maxInstancesPerBuffer
	}
	g := &glGroup{capacityBytes: capacity * glsl.InstanceStride}

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	// attribute 0: shared quad corners
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quad)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 8, 0)

	// attributes 1..6: per-instance stream
	gl.GenBuffers(1, &g.instances)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.instances)
	gl.BufferData(gl.ARRAY_BUFFER, g.capacityBytes, nil, gl.STREAM_DRAW)
	instanceAttribs(func(index uint32, size int32, offset uintptr) {
		gl.EnableVertexAttribArray(index)
		gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, glsl.InstanceStride, offset)
		gl.VertexAttribDivisor(index, 1)
	})

	gl.BindVertexArray(0)
	b.boundVAO = 0

	group.InternalData = g
	return nil
}

// instanceAttribs walks the per-instance attribute layout: position, size,
// rotation, uv rect, color, texture unit.
func instanceAttribs(set func(index uint32, size int32, offset uintptr)) {
	set(1, 2, 0)
	set(2, 2, 8)
	set(3, 1, 16)
	set(4, 4, 20)
	set(5, 4, 36)
	set(6, 1, 52)
}

func (b *Backend) SpriteGroupDestroy(group *metadata.SpriteGroup) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	g, ok := group.InternalData.(*glGroup)
	if !ok {
		return fmt.Errorf("sprite group %q has no gl object: %w", group.Name, core.ErrInvalidResource)
	}
	gl.DeleteBuffers(1, &g.instances)
	gl.DeleteVertexArrays(1, &g.vao)
	if b.boundVAO == g.vao {
		b.boundVAO = 0
	}
	group.InternalData = nil
	return nil
}

func (b *Backend) BeginFrame(clearColor mgl32.Vec4) error {
	if err := b.ensure(renderer.StateReady); err != nil {
		return err
	}
	gl.ClearColor(clearColor.X(), clearColor.Y(), clearColor.Z(), clearColor.W())
	gl.Clear(gl.COLOR_BUFFER_BIT)
	b.state = renderer.StateSubmitting
	return nil
}

func (b *Backend) UploadBatch(batch *metadata.Batch) error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	g, ok := batch.Group.InternalData.(*glGroup)
	if !ok {
		return fmt.Errorf("sprite group %q has no gl object: %w", batch.Group.Name, core.ErrInvalidResource)
	}

	data := b.packInstances(batch)
	size := len(data) * 4
	if size > g.capacityBytes {
		return fmt.Errorf("batch of %d instances exceeds group %q buffer: %w",
			batch.InstanceCount(), batch.Group.Name, core.ErrInvalidResource)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, g.instances)
	// orphan the previous contents so the driver never stalls on them
	gl.BufferData(gl.ARRAY_BUFFER, g.capacityBytes, nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(data))
	return nil
}

// packInstances serializes the batch into the scratch buffer, one
// glsl.InstanceFloats record per instance.
func (b *Backend) packInstances(batch *metadata.Batch) []float32 {
	need := batch.InstanceCount() * glsl.InstanceFloats
	if cap(b.scratch) < need {
		grown := 256 * glsl.InstanceFloats
		for grown < need {
			grown *= 2
		}
		b.scratch = make([]float32, 0, grown)
	}
	data := b.scratch[:0]
	for i, inst := range batch.Instances {
		data = append(data,
			inst.Position.X(), inst.Position.Y(),
			inst.Size.X(), inst.Size.Y(),
			inst.Rotation,
			inst.UVRect.X(), inst.UVRect.Y(), inst.UVRect.Z(), inst.UVRect.W(),
			inst.Color.X(), inst.Color.Y(), inst.Color.Z(), inst.Color.W(),
			float32(batch.Units[i]),
		)
	}
	b.scratch = data
	return data
}

func (b *Backend) DrawBatch(batch *metadata.Batch) error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	g, ok := batch.Group.InternalData.(*glGroup)
	if !ok {
		return fmt.Errorf("sprite group %q has no gl object: %w", batch.Group.Name, core.ErrInvalidResource)
	}

	if b.boundProgram != b.program {
		gl.UseProgram(b.program)
		b.boundProgram = b.program
	}
	vp := batch.ViewProjection
	gl.UniformMatrix4fv(b.uViewProjection, 1, false, &vp[0])

	for unit, tex := range batch.Textures {
		t, ok := tex.InternalData.(*glTexture)
		if !ok {
			return fmt.Errorf("texture %q has no gl object: %w", tex.Name, core.ErrInvalidResource)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, t.id)
	}

	if b.boundVAO != g.vao {
		gl.BindVertexArray(g.vao)
		b.boundVAO = g.vao
	}
	gl.DrawArraysInstanced(gl.TRIANGLE_STRIP, 0, 4, int32(batch.InstanceCount()))
	return nil
}

func (b *Backend) EndFrame() error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	b.surface.SwapBuffers()
	b.state = renderer.StateReady
	if b.pendingResize != nil {
		b.applyViewport(b.pendingResize[0], b.pendingResize[1])
		b.pendingResize = nil
	}
	return nil
}
