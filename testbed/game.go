// Package testbed is a small demo game exercising the engine: a scatter of
// rotating sprites over a checkerboard texture, with a slowly breathing
// camera zoom.
package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/rand"

	"github.com/spritekit/prism/engine"
	"github.com/spritekit/prism/engine/config"
	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer/components"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

const spriteCount = 512

type TestGame struct {
	*engine.Game
}

type sprite struct {
	instance metadata.SpriteInstance
	spin     float32
	drift    mgl32.Vec2
}

type gameState struct {
	texture metadata.TextureHandle
	group   metadata.SpriteGroupHandle
	camera  *components.Camera

	sprites []sprite
	elapsed float64
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State:  &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	return tg
}

func (tg *TestGame) state() *gameState {
	return tg.State.(*gameState)
}

func (tg *TestGame) Initialize() error {
	state := tg.state()
	sm := tg.Systems

	texture, err := sm.Textures.CreateTexture("checker", checkerPixels(64, 8), 64, 64,
		metadata.TextureFormatRGBA8, metadata.TextureFilterNearest)
	if err != nil {
		return err
	}
	state.texture = texture

	group, err := sm.SpriteGroups.CreateGroup("scatter", spriteCount)
	if err != nil {
		return err
	}
	state.group = group
	state.camera = sm.Cameras.Default()

	rng := rand.New(rand.NewSource(42))
	w, h := state.camera.WorldSize()
	state.sprites = make([]sprite, spriteCount)
	for i := range state.sprites {
		size := 16 + rng.Float32()*48
		state.sprites[i] = sprite{
			instance: metadata.SpriteInstance{
				Position: mgl32.Vec2{(rng.Float32() - 0.5) * w, (rng.Float32() - 0.5) * h},
				Size:     mgl32.Vec2{size, size},
				Texture:  texture,
				UVRect:   metadata.WholeTexture,
				Color:    mgl32.Vec4{rng.Float32(), rng.Float32(), rng.Float32(), 1},
			},
			spin:  (rng.Float32() - 0.5) * 4,
			drift: mgl32.Vec2{(rng.Float32() - 0.5) * 40, (rng.Float32() - 0.5) * 40},
		}
	}

	core.LogInfo("testbed: %d sprites scattered over %.0fx%.0f world units", spriteCount, w, h)
	return nil
}

func (tg *TestGame) Update(delta float64) error {
	state := tg.state()
	state.elapsed += delta
	dt := float32(delta)

	w, h := state.camera.WorldSize()
	for i := range state.sprites {
		s := &state.sprites[i]
		s.instance.Rotation += s.spin * dt
		p := s.instance.Position.Add(s.drift.Mul(dt))
		// wrap around the visible world
		if p.X() > w/2 {
			p[0] = -w / 2
		} else if p.X() < -w/2 {
			p[0] = w / 2
		}
		if p.Y() > h/2 {
			p[1] = -h / 2
		} else if p.Y() < -h/2 {
			p[1] = h / 2
		}
		s.instance.Position = p
	}

	state.camera.SetZoom(1 + 0.2*float32(math.Sin(state.elapsed*0.5)))
	return nil
}

func (tg *TestGame) Render(_ float64) error {
	state := tg.state()
	for i := range state.sprites {
		if err := tg.Systems.Submit(state.group, state.sprites[i].instance); err != nil {
			return err
		}
	}
	return nil
}

func (tg *TestGame) OnResize(width, height uint32) error {
	core.LogDebug("testbed: viewport %dx%d", width, height)
	return nil
}

// checkerPixels builds an RGBA8 checkerboard of the given size with cells
// pixels per square.
func checkerPixels(size, cells uint32) []uint8 {
	px := make([]uint8, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			off := (y*size + x) * 4
			v := uint8(40)
			if (x/cells+y/cells)%2 == 0 {
				v = 230
			}
			px[off] = v
			px[off+1] = v
			px[off+2] = v
			px[off+3] = 255
		}
	}
	return px
}
