package renderer

import (
	"ToonForest/internal/logger"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrNoDepthTexture = errors.New("depth textures are not supported by the graphics context")

// RenderTarget is a framebuffer with its color and depth textures. Its size is
// fixed; resizing allocates a new target.
type RenderTarget struct {
	Label       string
	Framebuffer FramebufferID
	Color       TextureID
	Depth       TextureID
	Width       int32
	Height      int32
}

// TargetManager allocates and frees render targets on a device.
type TargetManager struct {
	dev Device
}

// NewTargetManager fails when the device cannot sample depth textures, which
// the shadow pass depends on.
func NewTargetManager(dev Device) (*TargetManager, error) {
	if !dev.DepthTextureSupported() {
		return nil, ErrNoDepthTexture
	}
	return &TargetManager{dev: dev}, nil
}

// CreateShadowTarget allocates a square depth target. Its color texture only
// exists because some drivers refuse framebuffers without a color attachment.
func (m *TargetManager) CreateShadowTarget(resolution int32) (*RenderTarget, error) {
	return m.create("shadow", resolution, resolution)
}

// CreateSceneTarget allocates a color+depth target of the display size.
func (m *TargetManager) CreateSceneTarget(width, height int32) (*RenderTarget, error) {
	return m.create("scene", width, height)
}

// Reallocate replaces old with a target of the new size. Old is destroyed only
// once the replacement is complete.
func (m *TargetManager) Reallocate(old *RenderTarget, width, height int32) (*RenderTarget, error) {
	rt, err := m.create(old.Label, width, height)
	if err != nil {
		return nil, err
	}
	m.Destroy(old)
	return rt, nil
}

func (m *TargetManager) create(label string, width, height int32) (*RenderTarget, error) {
	if !m.dev.DepthTextureSupported() {
		return nil, ErrNoDepthTexture
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%s target: invalid size %dx%d", label, width, height)
	}

	var cleanup Unwind
	color, err := m.dev.CreateTexture(TextureDesc{Width: width, Height: height, Format: FormatRGBA8, Filter: FilterLinear})
	if err != nil {
		return nil, fmt.Errorf("%s target color: %w", label, err)
	}
	cleanup.Add(func() { m.dev.DeleteTexture(color) })

	// nearest filtering keeps depth samples from bleeding across shadow edges
	depth, err := m.dev.CreateTexture(TextureDesc{Width: width, Height: height, Format: FormatDepth, Filter: FilterNearest})
	if err != nil {
		cleanup.Unwind()
		return nil, fmt.Errorf("%s target depth: %w", label, err)
	}
	cleanup.Add(func() { m.dev.DeleteTexture(depth) })

	fb, err := m.dev.CreateFramebuffer(color, depth)
	if err != nil {
		cleanup.Unwind()
		return nil, fmt.Errorf("%s target: %w", label, err)
	}
	cleanup.Discard()

	logger.Log.Info("Render target allocated",
		zap.String("target", label),
		zap.Int32("width", width),
		zap.Int32("height", height))

	return &RenderTarget{
		Label:       label,
		Framebuffer: fb,
		Color:       color,
		Depth:       depth,
		Width:       width,
		Height:      height,
	}, nil
}

// Destroy frees the framebuffer and its attachments.
func (m *TargetManager) Destroy(rt *RenderTarget) {
	if rt == nil {
		return
	}
	if rt.Framebuffer != DefaultFramebuffer {
		m.dev.DeleteFramebuffer(rt.Framebuffer)
	}
	if rt.Color != NoTexture {
		m.dev.DeleteTexture(rt.Color)
	}
	if rt.Depth != NoTexture {
		m.dev.DeleteTexture(rt.Depth)
	}
	*rt = RenderTarget{Label: rt.Label}
}
