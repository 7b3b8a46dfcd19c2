package renderer

import (
	"ToonForest/internal/logger"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// PlaceholderColor fills a texture until its image finishes loading.
var PlaceholderColor = color.RGBA{R: 0, G: 0, B: 255, A: 255}

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures int
	CacheHits     int
	Pending       int
	Loaded        int
	Failed        int
}

type decodedImage struct {
	id   TextureID
	path string
	img  *image.RGBA
}

// TextureManager creates textures that are usable immediately. Image files are
// decoded on background goroutines; Poll uploads finished images on the render
// thread, replacing the placeholder.
type TextureManager struct {
	dev Device

	mu           sync.Mutex
	textureCache map[string]TextureID     // path -> texture
	texturePaths map[TextureID]string     // texture -> path (for debugging)
	filters      map[TextureID]TextureFilter
	stats        TextureStats

	done      chan decodedImage
	quit      chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup
	watcher   *fsnotify.Watcher
}

func NewTextureManager(dev Device) *TextureManager {
	return &TextureManager{
		dev:          dev,
		textureCache: make(map[string]TextureID),
		texturePaths: make(map[TextureID]string),
		filters:      make(map[TextureID]TextureFilter),
		done:         make(chan decodedImage, 16),
		quit:         make(chan struct{}),
	}
}

// LoadAsync returns a texture holding a 1×1 placeholder and starts decoding
// path. Loading the same path again, in any spelling, returns the cached texture.
func (tm *TextureManager) LoadAsync(path string, filter TextureFilter) (TextureID, error) {
	path = filepath.Clean(path)
	tm.mu.Lock()
	if id, ok := tm.textureCache[path]; ok {
		tm.stats.CacheHits++
		tm.mu.Unlock()
		return id, nil
	}
	tm.mu.Unlock()

	id, err := tm.dev.CreateTexture(TextureDesc{Width: 1, Height: 1, Format: FormatRGBA8, Filter: filter})
	if err != nil {
		return 0, err
	}
	tm.dev.UploadImage(id, placeholderImage(), filter)

	tm.mu.Lock()
	tm.textureCache[path] = id
	tm.texturePaths[id] = path
	tm.filters[id] = filter
	tm.stats.TotalTextures++
	tm.mu.Unlock()

	tm.decode(id, path)
	return id, nil
}

func (tm *TextureManager) decode(id TextureID, path string) {
	tm.mu.Lock()
	tm.stats.Pending++
	tm.mu.Unlock()

	tm.inflight.Add(1)
	go func() {
		defer tm.inflight.Done()
		img, err := DecodeImage(path)
		if err != nil {
			logger.Log.Warn("Texture load failed, keeping placeholder",
				zap.String("path", path),
				zap.Error(err))
			tm.mu.Lock()
			tm.stats.Pending--
			tm.stats.Failed++
			tm.mu.Unlock()
			return
		}
		select {
		case tm.done <- decodedImage{id: id, path: path, img: img}:
		case <-tm.quit:
		}
	}()
}

// Poll uploads every image that finished decoding. It must run on the render
// thread and never blocks. It returns the number of textures replaced.
func (tm *TextureManager) Poll() int {
	n := 0
	for {
		select {
		case d := <-tm.done:
			tm.mu.Lock()
			filter, known := tm.filters[d.id]
			tm.stats.Pending--
			if known {
				tm.stats.Loaded++
			}
			tm.mu.Unlock()
			if !known {
				continue
			}
			tm.dev.UploadImage(d.id, d.img, filter)
			logger.Log.Info("Texture loaded",
				zap.String("path", d.path),
				zap.Uint32("textureID", uint32(d.id)),
				zap.Int("width", d.img.Rect.Dx()),
				zap.Int("height", d.img.Rect.Dy()))
			n++
		default:
			return n
		}
	}
}

// WaitPending blocks until every in-flight decode has finished. Results still
// need a Poll to reach the GPU.
func (tm *TextureManager) WaitPending() {
	tm.inflight.Wait()
}

// CreateFromImage uploads img synchronously under name.
func (tm *TextureManager) CreateFromImage(name string, img image.Image, filter TextureFilter) (TextureID, error) {
	tm.mu.Lock()
	if id, ok := tm.textureCache[name]; ok {
		tm.stats.CacheHits++
		tm.mu.Unlock()
		return id, nil
	}
	tm.mu.Unlock()

	rgba := toRGBA(img)
	id, err := tm.dev.CreateTexture(TextureDesc{
		Width:  int32(rgba.Rect.Dx()),
		Height: int32(rgba.Rect.Dy()),
		Format: FormatRGBA8,
		Filter: filter,
	})
	if err != nil {
		return 0, err
	}
	tm.dev.UploadImage(id, rgba, filter)

	tm.mu.Lock()
	tm.textureCache[name] = id
	tm.texturePaths[id] = name
	tm.filters[id] = filter
	tm.stats.TotalTextures++
	tm.stats.Loaded++
	tm.mu.Unlock()

	logger.Log.Info("Texture created from image",
		zap.String("name", name),
		zap.Uint32("textureID", uint32(id)))
	return id, nil
}

// Watch re-decodes loaded image files whenever they change on disk. The
// watcher stops when the manager is cleared.
func (tm *TextureManager) Watch() error {
	if tm.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	tm.mu.Lock()
	dirs := make(map[string]struct{})
	for path := range tm.textureCache {
		if _, err := os.Stat(path); err == nil {
			dirs[filepath.Dir(path)] = struct{}{}
		}
	}
	tm.mu.Unlock()

	var errs []error
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			errs = append(errs, fmt.Errorf("watch %s: %w", dir, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		w.Close()
		return err
	}

	tm.watcher = w
	go tm.watchLoop(w)
	return nil
}

func (tm *TextureManager) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			tm.mu.Lock()
			path := filepath.Clean(event.Name)
			id, tracked := tm.textureCache[path]
			tm.mu.Unlock()
			if tracked {
				logger.Log.Debug("Texture changed on disk", zap.String("path", path))
				tm.decode(id, path)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("Texture watcher error", zap.Error(err))
		}
	}
}

// Texture returns the texture registered under a path or name.
func (tm *TextureManager) Texture(name string) (TextureID, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	id, ok := tm.textureCache[filepath.Clean(name)]
	return id, ok
}

// GetStats returns current texture manager statistics
func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.stats
}

// LogStats logs current texture statistics
func (tm *TextureManager) LogStats() {
	stats := tm.GetStats()
	logger.Log.Info("Texture Manager Stats",
		zap.Int("totalTextures", stats.TotalTextures),
		zap.Int("cacheHits", stats.CacheHits),
		zap.Int("pending", stats.Pending),
		zap.Int("loaded", stats.Loaded),
		zap.Int("failed", stats.Failed))
}

// Clear stops the watcher and releases all textures. Decodes still in flight
// are dropped.
func (tm *TextureManager) Clear() {
	tm.closeOnce.Do(func() { close(tm.quit) })
	if tm.watcher != nil {
		tm.watcher.Close()
		tm.watcher = nil
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	for id := range tm.texturePaths {
		tm.dev.DeleteTexture(id)
	}
	tm.textureCache = make(map[string]TextureID)
	tm.texturePaths = make(map[TextureID]string)
	tm.filters = make(map[TextureID]TextureFilter)

	logger.Log.Info("Texture manager cleared")
}

// DecodeImage reads an image file into tightly packed RGBA.
func DecodeImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

func placeholderImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, PlaceholderColor)
	return img
}
