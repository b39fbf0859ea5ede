package session

import (
	"context"
	"image"
	"sync"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/replay"
)

// ReferenceCache holds reference renderings by level id. Sessions of the
// same level share one rendering when they share a cache.
type ReferenceCache struct {
	mu     sync.Mutex
	images map[string]*image.Alpha
}

// NewReferenceCache returns an empty cache.
func NewReferenceCache() *ReferenceCache {
	return &ReferenceCache{images: make(map[string]*image.Alpha)}
}

// Len returns the number of cached renderings.
func (c *ReferenceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// get returns the cached rendering for id, computing it on a miss. The lock
// is held while computing so a rendering is made at most once.
func (c *ReferenceCache) get(id string, compute func() (*image.Alpha, error)) (*image.Alpha, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[id]; ok {
		return img, nil
	}
	img, err := compute()
	if err != nil {
		return nil, err
	}
	c.images[id] = img
	return img, nil
}

// renderReference draws the level's answer with an unlimited budget onto a
// fresh surface. Free-play levels without an answer get a blank rendering.
func renderReference(ctx context.Context, cfg *level.Config, newSurface SurfaceFactory) (*image.Alpha, error) {
	surface, err := acquireSurface(newSurface)
	if err != nil {
		return nil, err
	}
	if cfg.Answer == "" {
		return image.NewAlpha(surface.Bounds()), nil
	}

	exec, err := engine.NewInterpreter(engine.WithUnlimitedTicks()).Run(ctx, cfg.Answer)
	if err != nil {
		return nil, engine.NewConfigurationError(cfg.ID, "level %s: answer failed: %v", cfg.ID, err)
	}
	r := replay.New(surface)
	r.Reset(cfg.Start)
	r.Load(exec.Log)
	r.RunToCompletion()
	return surface.Alpha(), nil
}
