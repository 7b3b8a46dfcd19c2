package renderer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, dir string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, "palette.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestLoadAsyncPlaceholder(t *testing.T) {
	dev := newFakeDevice()
	tm := NewTextureManager(dev)
	defer tm.Clear()
	path := writeTestPNG(t, t.TempDir(), 4, 2, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	id, err := tm.LoadAsync(path, FilterLinear)
	require.NoError(t, err)

	placeholder := dev.uploads[id]
	require.NotNil(t, placeholder)
	assert.Equal(t, image.Rect(0, 0, 1, 1), placeholder.Rect)
	assert.Equal(t, PlaceholderColor, placeholder.RGBAAt(0, 0))

	tm.WaitPending()
	assert.Equal(t, 1, tm.Poll())

	loaded := dev.uploads[id]
	assert.Equal(t, image.Rect(0, 0, 4, 2), loaded.Rect)
	assert.Equal(t, color.RGBA{R: 200, G: 10, B: 10, A: 255}, loaded.RGBAAt(3, 1))
	assert.Equal(t, FilterLinear, dev.textures[id].Filter)

	stats := tm.GetStats()
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, 0, stats.Pending)
}

func TestLoadAsyncCachesByPath(t *testing.T) {
	dev := newFakeDevice()
	tm := NewTextureManager(dev)
	defer tm.Clear()
	path := writeTestPNG(t, t.TempDir(), 2, 2, color.RGBA{A: 255})

	first, err := tm.LoadAsync(path, FilterNearest)
	require.NoError(t, err)
	second, err := tm.LoadAsync(path, FilterNearest)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, tm.GetStats().CacheHits)
	got, ok := tm.Texture(path)
	assert.True(t, ok)
	assert.Equal(t, first, got)
	tm.WaitPending()
}

func TestLoadAsyncNormalizesPath(t *testing.T) {
	dev := newFakeDevice()
	tm := NewTextureManager(dev)
	defer tm.Clear()
	dir := t.TempDir()
	writeTestPNG(t, dir, 2, 2, color.RGBA{A: 255})

	first, err := tm.LoadAsync(dir+"/./palette.png", FilterLinear)
	require.NoError(t, err)
	second, err := tm.LoadAsync(filepath.Join(dir, "palette.png"), FilterLinear)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	got, ok := tm.Texture(dir + "//palette.png")
	assert.True(t, ok)
	assert.Equal(t, first, got)
	tm.WaitPending()
}

func TestWatchReloadsDotRelativePath(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.Mkdir("res", 0o755))
	writeTestPNG(t, "res", 2, 2, color.RGBA{A: 255})

	dev := newFakeDevice()
	tm := NewTextureManager(dev)
	defer tm.Clear()

	id, err := tm.LoadAsync("./res/palette.png", FilterLinear)
	require.NoError(t, err)
	tm.WaitPending()
	require.Equal(t, 1, tm.Poll())
	require.Equal(t, int32(2), dev.textures[id].Width)

	require.NoError(t, tm.Watch())
	writeTestPNG(t, "res", 4, 4, color.RGBA{G: 255, A: 255})

	assert.Eventually(t, func() bool {
		tm.Poll()
		return dev.textures[id].Width == 4
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLoadAsyncMissingFileKeepsPlaceholder(t *testing.T) {
	dev := newFakeDevice()
	tm := NewTextureManager(dev)
	defer tm.Clear()

	id, err := tm.LoadAsync(filepath.Join(t.TempDir(), "missing.png"), FilterLinear)
	require.NoError(t, err)

	tm.WaitPending()
	assert.Equal(t, 0, tm.Poll())
	assert.Equal(t, PlaceholderColor, dev.uploads[id].RGBAAt(0, 0))
	assert.Equal(t, 1, tm.GetStats().Failed)
}

func TestPollNeverBlocks(t *testing.T) {
	tm := NewTextureManager(newFakeDevice())
	defer tm.Clear()

	assert.Equal(t, 0, tm.Poll())
}

func TestCreateFromImage(t *testing.T) {
	dev := newFakeDevice()
	tm := NewTextureManager(dev)

	id, err := tm.CreateFromImage("hash", GenerateHashImage(8, 1), FilterNearest)
	require.NoError(t, err)

	assert.Equal(t, int32(8), dev.textures[id].Width)
	assert.Equal(t, FilterNearest, dev.textures[id].Filter)

	tm.Clear()
	assert.Empty(t, dev.textures)
	_, ok := tm.Texture("hash")
	assert.False(t, ok)
}

func TestClearDropsInflightDecodes(t *testing.T) {
	dev := newFakeDevice()
	tm := NewTextureManager(dev)
	dir := t.TempDir()
	path := writeTestPNG(t, dir, 2, 2, color.RGBA{A: 255})

	_, err := tm.LoadAsync(path, FilterLinear)
	require.NoError(t, err)
	tm.Clear()

	// decoding goroutines must finish even though nothing polls anymore
	tm.WaitPending()
	assert.Empty(t, dev.textures)
}

func TestDecodeImageConvertsToRGBA(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), 3, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	img, err := DecodeImage(path)
	require.NoError(t, err)

	assert.Equal(t, 3*4, img.Stride)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, img.RGBAAt(1, 1))
}
