package export

import (
	"context"
	"image"
)

// Canvas describes the off-screen surface a document is laid out on.
type Canvas struct {
	WidthPx int
	Scale   float64
}

// Renderer hands out off-screen surfaces. Every acquired surface must be
// released, whatever happens between Acquire and Release.
type Renderer interface {
	Acquire(ctx context.Context, canvas Canvas) (Surface, error)
}

// Surface holds one mounted container until Release.
type Surface interface {
	// Mount attaches the container markup and returns once it is laid out.
	Mount(ctx context.Context, html string) error
	// Capture rasterizes the mounted container at the canvas scale.
	Capture(ctx context.Context) (image.Image, error)
	Release()
}
