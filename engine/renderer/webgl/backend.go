//go:build js && wasm

// Package webgl is the WebGL2 backend for wasm builds. All GL traffic goes
// through syscall/js against the context of a canvas element; the surface
// must expose the canvas via a Canvas() method.
package webgl

import (
	"fmt"
	"math"
	"syscall/js"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/internal/glsl"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

func init() {
	renderer.Register(renderer.BackendWebGL, func() renderer.RendererBackend {
		return New()
	})
}

const maxInstancesPerBuffer = 8192

// canvasSurface is the extra capability the webgl backend needs from its
// surface beyond renderer.Surface.
type canvasSurface interface {
	Canvas() js.Value
}

type glTexture struct {
	obj js.Value
}

type glGroup struct {
	vao           js.Value
	instances     js.Value
	capacityBytes int
}

type Backend struct {
	state   renderer.State
	surface renderer.Surface
	limits  renderer.BackendLimits

	gl            js.Value
	width, height uint32
	pendingResize *[2]uint32

	program         js.Value
	quad            js.Value
	uViewProjection js.Value

	// staging buffers reused across uploads
	scratch   []float32
	byteView  []byte
	jsStaging js.Value
	matrixJS  js.Value
}

func New() *Backend {
	return &Backend{state: renderer.StateUninitialized}
}

func (b *Backend) Name() string {
	return renderer.BackendWebGL
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
	return fmt.Errorf("webgl backend is %s: %w", b.state, core.ErrBackendNotReady)
}

// checkContext drops the backend back to uninitialized when the browser
// revoked the context. Every handle is dead at that point; the application
// must reinitialize and recreate its resources.
func (b *Backend) checkContext() error {
	if b.gl.Truthy() && b.gl.Call("isContextLost").Bool() {
		core.LogError("webgl context lost, backend dropping to uninitialized")
		b.state = renderer.StateUninitialized
		return fmt.Errorf("webgl context lost: %w", core.ErrBackendNotReady)
	}
	return nil
}

func (b *Backend) Initialize(surface renderer.Surface, _ renderer.BackendConfig) error {
	if err := b.ensure(renderer.StateUninitialized); err != nil {
		return err
	}
	cs, ok := surface.(canvasSurface)
	if !ok {
		return fmt.Errorf("surface does not expose a canvas: %w", core.ErrContextCreationFailed)
	}
	gl := cs.Canvas().Call("getContext", "webgl2", map[string]interface{}{
		"antialias":          false,
		"premultipliedAlpha": false,
	})
	if !gl.Truthy() {
		return fmt.Errorf("webgl2 context unavailable: %w", core.ErrContextCreationFailed)
	}
	b.surface = surface
	b.gl = gl

	units := gl.Call("getParameter", gl.Get("MAX_TEXTURE_IMAGE_UNITS")).Int()
	if units < 1 {
		units = 1
	}
	b.limits = renderer.BackendLimits{
		MaxBoundTextureUnits:  units,
		MaxInstancesPerBuffer: maxInstancesPerBuffer,
	}

	if err := b.buildProgram(units); err != nil {
		return fmt.Errorf("sprite program: %w: %s", core.ErrContextCreationFailed, err.Error())
	}

	b.quad = gl.Call("createBuffer")
	gl.Call("bindBuffer", gl.Get("ARRAY_BUFFER"), b.quad)
	corners := float32Array(glsl.QuadCorners)
	gl.Call("bufferData", gl.Get("ARRAY_BUFFER"), corners, gl.Get("STATIC_DRAW"))

	gl.Call("enable", gl.Get("BLEND"))
	gl.Call("blendFunc", gl.Get("SRC_ALPHA"), gl.Get("ONE_MINUS_SRC_ALPHA"))
	gl.Call("disable", gl.Get("DEPTH_TEST"))

	b.matrixJS = js.Global().Get("Float32Array").New(16)
	b.width, b.height = surface.FramebufferSize()
	gl.Call("viewport", 0, 0, int(b.width), int(b.height))

	b.state = renderer.StateReady
	core.LogInfo("webgl backend ready: %d texture units", units)
	return nil
}

func (b *Backend) Shutdown() error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	b.gl.Call("deleteProgram", b.program)
	b.gl.Call("deleteBuffer", b.quad)
	b.program = js.Undefined()
	b.quad = js.Undefined()
	b.state = renderer.StateTornDown
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("webgl backend resize %dx%d: %w", width, height, core.ErrInvalidViewport)
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
	b.gl.Call("viewport", 0, 0, int(width), int(height))
}

func (b *Backend) Limits() renderer.BackendLimits {
	return b.limits
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	gl := b.gl

	obj := gl.Call("createTexture")
	gl.Call("bindTexture", gl.Get("TEXTURE_2D"), obj)

	filter := gl.Get("LINEAR")
	if texture.Filter == metadata.TextureFilterNearest {
		filter = gl.Get("NEAREST")
	}
	wrap := gl.Get("CLAMP_TO_EDGE")
	if texture.Wrap == metadata.TextureWrapRepeat {
		wrap = gl.Get("REPEAT")
	}
	gl.Call("texParameteri", gl.Get("TEXTURE_2D"), gl.Get("TEXTURE_MIN_FILTER"), filter)
	gl.Call("texParameteri", gl.Get("TEXTURE_2D"), gl.Get("TEXTURE_MAG_FILTER"), filter)
	gl.Call("texParameteri", gl.Get("TEXTURE_2D"), gl.Get("TEXTURE_WRAP_S"), wrap)
	gl.Call("texParameteri", gl.Get("TEXTURE_2D"), gl.Get("TEXTURE_WRAP_T"), wrap)

	data := js.Null()
	if pixels != nil {
		data = byteArray(pixels)
	}
	gl.Call("texImage2D", gl.Get("TEXTURE_2D"), 0, gl.Get("RGBA8"),
		int(texture.Width), int(texture.Height), 0,
		gl.Get("RGBA"), gl.Get("UNSIGNED_BYTE"), data)

	texture.InternalData = &glTexture{obj: obj}
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("texture %q has no webgl object: %w", texture.Name, core.ErrInvalidResource)
	}
	b.gl.Call("deleteTexture", t.obj)
	texture.InternalData = nil
	return nil
}

func (b *Backend) TextureWriteData(texture *metadata.Texture, region metadata.Region, pixels []uint8) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("texture %q has no webgl object: %w", texture.Name, core.ErrInvalidResource)
	}
	gl := b.gl
	gl.Call("bindTexture", gl.Get("TEXTURE_2D"), t.obj)
	gl.Call("texSubImage2D", gl.Get("TEXTURE_2D"), 0,
		int(region.X), int(region.Y), int(region.Width), int(region.Height),
		gl.Get("RGBA"), gl.Get("UNSIGNED_BYTE"), byteArray(pixels))
	return nil
}

func (b *Backend) TextureResize(texture *metadata.Texture, width, height uint32, pixels []uint8) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("texture %q has no webgl object: %w", texture.Name, core.ErrInvalidResource)
	}
	gl := b.gl
	gl.Call("bindTexture", gl.Get("TEXTURE_2D"), t.obj)
	data := js.Null()
	if pixels != nil {
		data = byteArray(pixels)
	}
	gl.Call("texImage2D", gl.Get("TEXTURE_2D"), 0, gl.Get("RGBA8"),
		int(width), int(height), 0,
		gl.Get("RGBA"), gl.Get("UNSIGNED_BYTE"), data)
	return nil
}

func (b *Backend) SpriteGroupCreate(group *metadata.SpriteGroup) error {
	if err := b.ensure(renderer.StateReady, renderer.StateSubmitting); err != nil {
		return err
	}
	gl := b.gl

	capacity := int(group.Capacity)
	if capacity > maxInstancesPerBuffer {
		capacity = maxInstancesPerBuffer
	}
	g := &glGroup{capacityBytes: capacity * glsl.InstanceStride}

	g.vao = gl.Call("createVertexArray")
	gl.Call("bindVertexArray", g.vao)

	gl.Call("bindBuffer", gl.Get("ARRAY_BUFFER"), b.quad)
	gl.Call("enableVertexAttribArray", 0)
	gl.Call("vertexAttribPointer", 0, 2, gl.Get("FLOAT"), false, 8, 0)

	g.instances = gl.Call("createBuffer")
	gl.Call("bindBuffer", gl.Get("ARRAY_BUFFER"), g.instances)
	gl.Call("bufferData", gl.Get("ARRAY_BUFFER"), g.capacityBytes, gl.Get("STREAM_DRAW"))
	instanceAttribs(func(index, size, offset int) {
		gl.Call("enableVertexAttribArray", index)
		gl.Call("vertexAttribPointer", index, size, gl.Get("FLOAT"), false, glsl.InstanceStride, offset)
		gl.Call("vertexAttribDivisor", index, 1)
	})

	gl.Call("bindVertexArray", js.Null())
	group.InternalData = g
	return nil
}

func instanceAttribs(set func(index, size, offset int)) {
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
		return fmt.Errorf("sprite group %q has no webgl object: %w", group.Name, core.ErrInvalidResource)
	}
	b.gl.Call("deleteBuffer", g.instances)
	b.gl.Call("deleteVertexArray", g.vao)
	group.InternalData = nil
	return nil
}

func (b *Backend) BeginFrame(clearColor mgl32.Vec4) error {
	if err := b.checkContext(); err != nil {
		return err
	}
	if err := b.ensure(renderer.StateReady); err != nil {
		return err
	}
	gl := b.gl
	gl.Call("clearColor", clearColor.X(), clearColor.Y(), clearColor.Z(), clearColor.W())
	gl.Call("clear", gl.Get("COLOR_BUFFER_BIT"))
	b.state = renderer.StateSubmitting
	return nil
}

func (b *Backend) UploadBatch(batch *metadata.Batch) error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	g, ok := batch.Group.InternalData.(*glGroup)
	if !ok {
		return fmt.Errorf("sprite group %q has no webgl object: %w", batch.Group.Name, core.ErrInvalidResource)
	}

	data := b.packInstances(batch)
	size := len(data) * 4
	if size > g.capacityBytes {
		return fmt.Errorf("batch of %d instances exceeds group %q buffer: %w",
			batch.InstanceCount(), batch.Group.Name, core.ErrInvalidResource)
	}

	gl := b.gl
	gl.Call("bindBuffer", gl.Get("ARRAY_BUFFER"), g.instances)
	gl.Call("bufferSubData", gl.Get("ARRAY_BUFFER"), 0, b.stage(data), 0, size)
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

// stage copies the packed floats into a persistent JS Uint8Array and
// returns it, growing the staging buffers as needed.
func (b *Backend) stage(data []float32) js.Value {
	size := len(data) * 4
	if len(b.byteView) < size {
		b.byteView = make([]byte, size)
		b.jsStaging = js.Global().Get("Uint8Array").New(size)
	}
	for i, f := range data {
		bits := math.Float32bits(f)
		b.byteView[i*4] = byte(bits)
		b.byteView[i*4+1] = byte(bits >> 8)
		b.byteView[i*4+2] = byte(bits >> 16)
		b.byteView[i*4+3] = byte(bits >> 24)
	}
	js.CopyBytesToJS(b.jsStaging, b.byteView[:size])
	return b.jsStaging
}

func (b *Backend) DrawBatch(batch *metadata.Batch) error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	g, ok := batch.Group.InternalData.(*glGroup)
	if !ok {
		return fmt.Errorf("sprite group %q has no webgl object: %w", batch.Group.Name, core.ErrInvalidResource)
	}
	gl := b.gl

	gl.Call("useProgram", b.program)
	for i, f := range batch.ViewProjection {
		b.matrixJS.SetIndex(i, f)
	}
	gl.Call("uniformMatrix4fv", b.uViewProjection, false, b.matrixJS)

	for unit, tex := range batch.Textures {
		t, ok := tex.InternalData.(*glTexture)
		if !ok {
			return fmt.Errorf("texture %q has no webgl object: %w", tex.Name, core.ErrInvalidResource)
		}
		gl.Call("activeTexture", gl.Get("TEXTURE0").Int()+unit)
		gl.Call("bindTexture", gl.Get("TEXTURE_2D"), t.obj)
	}

	gl.Call("bindVertexArray", g.vao)
	gl.Call("drawArraysInstanced", gl.Get("TRIANGLE_STRIP"), 0, 4, batch.InstanceCount())
	return nil
}

func (b *Backend) EndFrame() error {
	if err := b.ensure(renderer.StateSubmitting); err != nil {
		return err
	}
	if err := b.checkContext(); err != nil {
		return err
	}
	// the browser presents when the frame callback returns
	b.surface.SwapBuffers()
	b.state = renderer.StateReady
	if b.pendingResize != nil {
		b.applyViewport(b.pendingResize[0], b.pendingResize[1])
		b.pendingResize = nil
	}
	return nil
}

func (b *Backend) buildProgram(textureUnits int) error {
	gl := b.gl
	vert, err := b.compileShader(glsl.VertexSource(glsl.HeaderGLES300), gl.Get("VERTEX_SHADER"))
	if err != nil {
		return fmt.Errorf("vertex shader: %w", err)
	}
	frag, err := b.compileShader(glsl.FragmentSource(glsl.HeaderGLES300, textureUnits), gl.Get("FRAGMENT_SHADER"))
	if err != nil {
		return fmt.Errorf("fragment shader: %w", err)
	}

	program := gl.Call("createProgram")
	gl.Call("attachShader", program, vert)
	gl.Call("attachShader", program, frag)
	gl.Call("linkProgram", program)
	gl.Call("deleteShader", vert)
	gl.Call("deleteShader", frag)
	if !gl.Call("getProgramParameter", program, gl.Get("LINK_STATUS")).Bool() {
		log := gl.Call("getProgramInfoLog", program).String()
		gl.Call("deleteProgram", program)
		return fmt.Errorf("link: %s", log)
	}

	b.program = program
	b.uViewProjection = gl.Call("getUniformLocation", program, "uViewProjection")

	gl.Call("useProgram", program)
	samplers := js.Global().Get("Int32Array").New(textureUnits)
	for i := 0; i < textureUnits; i++ {
		samplers.SetIndex(i, i)
	}
	gl.Call("uniform1iv", gl.Call("getUniformLocation", program, "uTextures"), samplers)
	return nil
}

func (b *Backend) compileShader(source string, shaderType js.Value) (js.Value, error) {
	gl := b.gl
	shader := gl.Call("createShader", shaderType)
	// the NUL terminator is a cgo convention the browser has no use for
	gl.Call("shaderSource", shader, trimNul(source))
	gl.Call("compileShader", shader)
	if !gl.Call("getShaderParameter", shader, gl.Get("COMPILE_STATUS")).Bool() {
		log := gl.Call("getShaderInfoLog", shader).String()
		gl.Call("deleteShader", shader)
		return js.Undefined(), fmt.Errorf("compile: %s", log)
	}
	return shader, nil
}

func trimNul(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\x00' {
		return s[:len(s)-1]
	}
	return s
}

func float32Array(values []float32) js.Value {
	arr := js.Global().Get("Float32Array").New(len(values))
	for i, v := range values {
		arr.SetIndex(i, v)
	}
	return arr
}

func byteArray(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}
