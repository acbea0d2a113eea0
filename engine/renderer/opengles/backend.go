//go:build !js

// Package opengles is the OpenGL ES 3.x backend, for embedded targets and
// ANGLE style drivers. Same instanced quad scheme as the desktop backend,
// with ES shader sources and the gles2 bindings.
package opengles

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.1/gles2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/internal/glsl"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

func init() {
	renderer.Register(renderer.BackendGLES, func() renderer.RendererBackend {
		return New()
	})
}

const maxInstancesPerBuffer = 8192

type glTexture struct {
	id uint32
}

type glGroup struct {
	vao           uint32
	instances     uint32
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

	boundVAO     uint32
	boundProgram uint32

	scratch []float32
}

func New() *Backend {
	return &Backend{state: renderer.StateUninitialized}
}

func (b *Backend) Name() string {
	return renderer.BackendGLES
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
	return fmt.Errorf("gles backend is %s: %w", b.state, core.ErrBackendNotReady)
}

func (b *Backend) Initialize(surface renderer.Surface, _ renderer.BackendConfig) error {
	if err := b.ensure(renderer.StateUninitialized); err != nil {
		return err
	}
	b.surface = surface
	surface.MakeContextCurrent()

	if err := gles2.Init(); err != nil {
		return fmt.Errorf("load gles functions: %w: %s", core.ErrContextCreationFailed, err.Error())
	}

	var units int32
	gles2.GetIntegerv(gles2.MAX_TEXTURE_IMAGE_UNITS, &units)
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
	b.uViewProjection = gles2.GetUniformLocation(program, gles2.Str("uViewProjection\x00"))

	gles2.UseProgram(program)
	samplers := make([]int32, b.limits.MaxBoundTextureUnits)
	for i := range samplers {
		samplers[i] = int32(i)
	}
	gles2.Uniform1iv(gles2.GetUniformLocation(program, gles2.Str("uTextures\x00")), int32(len(samplers)), &samplers[0])
	b.boundProgram = program

	gles2.GenBuffers(1, &b.quad)
	gles2.BindBuffer(gles2.ARRAY_BUFFER, b.quad)
	gles2.BufferData(gles2.ARRAY_BUFFER, len(glsl.QuadCorners)*4, gles2.Ptr(glsl.QuadCorners), gles2.STATIC_DRAW)

	gles2.Enable(gles2.BLEND)
	gles2.BlendFunc(gles2.SRC_ALPHA, gles2.ONE_MINUS_SRC_ALPHA)
	gles2.Disable(gles2.DEPTH_TEST)

	b.width, b.height = surface.FramebufferSize()
	gles2.Viewport(0, 0, int32(b.width), int32(b.height))

	b.state = renderer.StateReady
	core.LogInfo("gles backend ready: %d texture units", b.limits.MaxBoundTextureUnits)
	return nil
}

func (b *Backend) Shutdown() error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	gles2.DeleteProgram(b.program)
	gles2.DeleteBuffers(1, &b.quad)
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
		return fmt.Errorf("gles backend resize %dx%d: %w", width, height, core.ErrInvalidViewport)
	}
	if b.state == renderer.StateSubmitting {
		b.pendingResize = &[2]uint32{width, height}
		return nil
	}
	b.applyViewport(width, height)
	return nil
}

func (b *Backend) applyViewport(width, height uint32) {
	b.width, b.height = width, height
	gles2.Viewport(0, 0, int32(width), int32(height))
}

func (b *Backend) Limits() renderer.BackendLimits {
	return b.limits
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}

	var id uint32
	gles2.GenTextures(1, &id)
	gles2.BindTexture(gles2.TEXTURE_2D, id)

	filter := int32(gles2.LINEAR)
	if texture.Filter == metadata.TextureFilterNearest {
		filter = gles2.NEAREST
	}
	wrap := int32(gles2.CLAMP_TO_EDGE)
	if texture.Wrap == metadata.TextureWrapRepeat {
		wrap = gles2.REPEAT
	}
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_MIN_FILTER, filter)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_MAG_FILTER, filter)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_WRAP_S, wrap)
	gles2.TexParameteri(gles2.TEXTURE_2D, gles2.TEXTURE_WRAP_T, wrap)

	var ptr interface{}
	if pixels != nil {
		ptr = pixels
	}
	gles2.TexImage2D(gles2.TEXTURE_2D, 0, gles2.RGBA8, int32(texture.Width), int32(texture.Height),
		0, gles2.RGBA, gles2.UNSIGNED_BYTE, gles2.Ptr(ptr))

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
	gles2.DeleteTextures(1, &t.id)
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
	gles2.BindTexture(gles2.TEXTURE_2D, t.id)
	gles2.TexSubImage2D(gles2.TEXTURE_2D, 0, int32(region.X), int32(region.Y),
		int32(region.Width), int32(region.Height), gles2.RGBA, gles2.UNSIGNED_BYTE, gles2.Ptr(pixels))
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
	gles2.BindTexture(gles2.TEXTURE_2D, t.id)
	var ptr interface{}
	if pixels != nil {
		ptr = pixels
	}
	gles2.TexImage2D(gles2.TEXTURE_2D, 0, gles2.RGBA8, int32(width), int32(height),
		0, gles2.RGBA, gles2.UNSIGNED_BYTE, gles2.Ptr(ptr))
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

	gles2.GenVertexArrays(1, &g.vao)
	gles2.BindVertexArray(g.vao)

	gles2.BindBuffer(gles2.ARRAY_BUFFER, b.quad)
	gles2.EnableVertexAttribArray(0)
	gles2.VertexAttribPointerWithOffset(0, 2, gles2.FLOAT, false, 8, 0)

	gles2.GenBuffers(1, &g.instances)
	gles2.BindBuffer(gles2.ARRAY_BUFFER, g.instances)
	gles2.BufferData(gles2.ARRAY_BUFFER, g.capacityBytes, nil, gles2.STREAM_DRAW)
	instanceAttribs(func(index uint32, size int32, offset uintptr) {
		gles2.EnableVertexAttribArray(index)
		gles2.VertexAttribPointerWithOffset(index, size, gles2.FLOAT, false, glsl.InstanceStride, offset)
		gles2.VertexAttribDivisor(index, 1)
	})

	gles2.BindVertexArray(0)
	b.boundVAO = 0

	group.InternalData = g
	return nil
}

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
	gles2.DeleteBuffers(1, &g.instances)
	gles2.DeleteVertexArrays(1, &g.vao)
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
	gles2.ClearColor(clearColor.X(), clearColor.Y(), clearColor.Z(), clearColor.W())
	gles2.Clear(gles2.COLOR_BUFFER_BIT)
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

	gles2.BindBuffer(gles2.ARRAY_BUFFER, g.instances)
	gles2.BufferData(gles2.ARRAY_BUFFER, g.capacityBytes, nil, gles2.STREAM_DRAW)
	gles2.BufferSubData(gles2.ARRAY_BUFFER, 0, size, gles2.Ptr(data))
	return nil
}

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
		gles2.UseProgram(b.program)
		b.boundProgram = b.program
	}
	vp := batch.ViewProjection
	gles2.UniformMatrix4fv(b.uViewProjection, 1, false, &vp[0])

	for unit, tex := range batch.Textures {
		t, ok := tex.InternalData.(*glTexture)
		if !ok {
			return fmt.Errorf("texture %q has no gl object: %w", tex.Name, core.ErrInvalidResource)
		}
		gles2.ActiveTexture(gles2.TEXTURE0 + uint32(unit))
		gles2.BindTexture(gles2.TEXTURE_2D, t.id)
	}

	if b.boundVAO != g.vao {
		gles2.BindVertexArray(g.vao)
		b.boundVAO = g.vao
	}
	gles2.DrawArraysInstanced(gles2.TRIANGLE_STRIP, 0, 4, int32(batch.InstanceCount()))
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

func buildProgram(textureUnits int) (uint32, error) {
	vert, err := compileShader(glsl.VertexSource(glsl.HeaderGLES300), gles2.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gles2.DeleteShader(vert)

	frag, err := compileShader(glsl.FragmentSource(glsl.HeaderGLES300, textureUnits), gles2.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gles2.DeleteShader(frag)

	program := gles2.CreateProgram()
	gles2.AttachShader(program, vert)
	gles2.AttachShader(program, frag)
	gles2.LinkProgram(program)

	var status int32
	gles2.GetProgramiv(program, gles2.LINK_STATUS, &status)
	if status == gles2.FALSE {
		var logLength int32
		gles2.GetProgramiv(program, gles2.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gles2.GetProgramInfoLog(program, logLength, nil, gles2.Str(log))
		gles2.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gles2.CreateShader(shaderType)
	csources, free := gles2.Strs(source)
	gles2.ShaderSource(shader, 1, csources, nil)
	free()
	gles2.CompileShader(shader)

	var status int32
	gles2.GetShaderiv(shader, gles2.COMPILE_STATUS, &status)
	if status == gles2.FALSE {
		var logLength int32
		gles2.GetShaderiv(shader, gles2.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gles2.GetShaderInfoLog(shader, logLength, nil, gles2.Str(log))
		gles2.DeleteShader(shader)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
