// Package camera holds the camera switcher shown above the recent plates
// table. There is no video integration; the list is configuration only.
package camera

import (
	"anpr-dashboard/internal/config"
	"anpr-dashboard/internal/domain/plates"
)

// Carousel cycles through a fixed camera list. Indices wrap around in both
// directions.
type Carousel struct {
	cameras []plates.Camera
}

func NewCarousel(cameras []plates.Camera) *Carousel {
	cp := make([]plates.Camera, len(cameras))
	copy(cp, cameras)
	return &Carousel{cameras: cp}
}

func FromConfig(cfg []config.CameraConfig) *Carousel {
	cams := make([]plates.Camera, 0, len(cfg))
	for _, c := range cfg {
		cams = append(cams, plates.Camera{ID: c.ID, Name: c.Name})
	}
	return NewCarousel(cams)
}

func (c *Carousel) Len() int {
	return len(c.cameras)
}

func (c *Carousel) Cameras() []plates.Camera {
	cp := make([]plates.Camera, len(c.cameras))
	copy(cp, c.cameras)
	return cp
}

// Index maps any integer onto a valid position.
func (c *Carousel) Index(i int) int {
	n := len(c.cameras)
	if n == 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// At returns the camera at position i after wrapping.
func (c *Carousel) At(i int) (plates.Camera, bool) {
	if len(c.cameras) == 0 {
		return plates.Camera{}, false
	}
	return c.cameras[c.Index(i)], true
}

func (c *Carousel) Next(i int) int {
	return c.Index(c.Index(i) + 1)
}

func (c *Carousel) Prev(i int) int {
	return c.Index(c.Index(i) - 1)
}
