package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spritekit/prism/engine/core"
	"github.com/spritekit/prism/engine/renderer"
	"github.com/spritekit/prism/engine/renderer/metadata"
)

type SpriteGroupSystemConfig struct {
	/** @brief The maximum number of sprite groups that can exist at once. */
	MaxSpriteGroupCount uint32
}

// SpriteGroupSystem is the handle table for sprite groups, mirroring the
// texture table: fixed slots, generation counters, explicit destruction.
type SpriteGroupSystem struct {
	Config      *SpriteGroupSystemConfig
	registered  []*metadata.SpriteGroup
	generations []uint32
	renderer    *renderer.Renderer
}

func NewSpriteGroupSystem(config *SpriteGroupSystemConfig, r *renderer.Renderer) (*SpriteGroupSystem, error) {
	if config.MaxSpriteGroupCount == 0 {
		err := fmt.Errorf("func NewSpriteGroupSystem - config.MaxSpriteGroupCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	sgs := &SpriteGroupSystem{
		Config:      config,
		registered:  make([]*metadata.SpriteGroup, config.MaxSpriteGroupCount),
		generations: make([]uint32, config.MaxSpriteGroupCount),
		renderer:    r,
	}
	for i := uint32(0); i < config.MaxSpriteGroupCount; i++ {
		sgs.registered[i] = &metadata.SpriteGroup{
			Slot:       metadata.InvalidID,
			Generation: metadata.InvalidID,
		}
	}
	return sgs, nil
}

// CreateGroup reserves a backend buffer region for capacity instances
// sharing one draw configuration.
func (sgs *SpriteGroupSystem) CreateGroup(name string, capacity uint32) (metadata.SpriteGroupHandle, error) {
	if capacity == 0 {
		return metadata.NilSpriteGroupHandle, fmt.Errorf("sprite group capacity must be > 0: %w", core.ErrInvalidResource)
	}
	slot, free := sgs.freeSlot()
	if !free {
		return metadata.NilSpriteGroupHandle, fmt.Errorf("sprite group system holds %d groups already, adjust configuration to allow more: %w",
			sgs.Config.MaxSpriteGroupCount, core.ErrInvalidResource)
	}
	if name == "" {
		name = uuid.New().String()
	}

	g := sgs.registered[slot]
	g.Slot = slot
	g.Generation = sgs.generations[slot]
	g.Name = name
	g.Capacity = capacity

	if err := sgs.renderer.SpriteGroupCreate(g); err != nil {
		g.Slot = metadata.InvalidID
		g.Generation = metadata.InvalidID
		return metadata.NilSpriteGroupHandle, err
	}

	core.LogDebug("sprite group '%s' created in slot %d, capacity %d", name, slot, capacity)
	return metadata.SpriteGroupHandle{Slot: slot, Generation: g.Generation}, nil
}

func (sgs *SpriteGroupSystem) DestroyGroup(handle metadata.SpriteGroupHandle) error {
	g, err := sgs.Resolve(handle)
	if err != nil {
		return err
	}
	if err := sgs.renderer.SpriteGroupDestroy(g); err != nil {
		return err
	}
	sgs.retire(g)
	return nil
}

func (sgs *SpriteGroupSystem) Resolve(handle metadata.SpriteGroupHandle) (*metadata.SpriteGroup, error) {
	if handle.Slot >= sgs.Config.MaxSpriteGroupCount {
		return nil, fmt.Errorf("sprite group slot %d: %w", handle.Slot, core.ErrUnknownHandle)
	}
	g := sgs.registered[handle.Slot]
	if g.Slot == metadata.InvalidID || g.Generation != handle.Generation {
		return nil, fmt.Errorf("sprite group %d@%d is stale: %w", handle.Slot, handle.Generation, core.ErrUnknownHandle)
	}
	return g, nil
}

func (sgs *SpriteGroupSystem) DestroyAll() error {
	for i := uint32(0); i < sgs.Config.MaxSpriteGroupCount; i++ {
		g := sgs.registered[i]
		if g.Slot == metadata.InvalidID {
			continue
		}
		if err := sgs.renderer.SpriteGroupDestroy(g); err != nil {
			return err
		}
		sgs.retire(g)
	}
	return nil
}

func (sgs *SpriteGroupSystem) freeSlot() (uint32, bool) {
	for i := uint32(0); i < sgs.Config.MaxSpriteGroupCount; i++ {
		if sgs.registered[i].Slot == metadata.InvalidID {
			return i, true
		}
	}
	return metadata.InvalidID, false
}

func (sgs *SpriteGroupSystem) retire(g *metadata.SpriteGroup) {
	slot := g.Slot
	sgs.generations[slot] = g.Generation + 1
	g.Slot = metadata.InvalidID
	g.Generation = metadata.InvalidID
	g.InternalData = nil
}
