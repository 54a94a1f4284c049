package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-core/engine/assets/loaders"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

type AssetInfo struct {
	Name       string
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

type assetKey struct {
	name      string
	assetType metadata.ResourceType
}

// AssetManager indexes the asset files under a base directory by name and type.
// When watching, changes on disk update the index and fire EventCodeAssetChanged
// from the watcher goroutine.
type AssetManager struct {
	basePath string
	watch    bool

	assets  map[string]AssetInfo
	byName  map[assetKey]string
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	eventBus *core.EventBus
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewAssetManager(config core.AssetsConfig, eventBus *core.EventBus) (*AssetManager, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("NewAssetManager - config.BasePath is required")
	}
	am := &AssetManager{
		basePath: filepath.Clean(config.BasePath),
		watch:    config.Watch,
		assets:   make(map[string]AssetInfo),
		byName:   make(map[assetKey]string),
		loaders:  make(map[metadata.ResourceType]Loader),
		eventBus: eventBus,
		done:     make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})
	return am, nil
}

// Initialize indexes the base directory and, when configured, starts watching it.
func (am *AssetManager) Initialize() error {
	if am.watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = fsWatch
	}

	if err := am.addRecursive(am.basePath); err != nil {
		return err
	}

	if am.fsnotify != nil {
		am.wg.Add(1)
		go am.start()
	}
	return nil
}

// Shutdown stops the watcher, if any.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return nil
}

// AddRecursive indexes the named directory and all sub-directories, watching them when enabled.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Path returns the file of the named asset.
func (am *AssetManager) Path(name string, resourceType metadata.ResourceType) (string, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	p, ok := am.byName[assetKey{name: name, assetType: resourceType}]
	return p, ok
}

// Assets lists the indexed assets of a type sorted by name.
func (am *AssetManager) Assets(resourceType metadata.ResourceType) []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		if a.Type == resourceType {
			out = append(out, a)
		}
	}
	am.mutex.RUnlock()
	slices.SortFunc(out, func(a, b AssetInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	am.mutex.Lock()
	path, exists := am.byName[assetKey{name: name, assetType: resourceType}]
	if !exists {
		am.mutex.Unlock()
		return nil, fmt.Errorf("%s asset not found: %s", resourceType, name)
	}
	asset := am.assets[path]
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}
	return loader.Load(path, resourceType, params)
}

// LoadPath loads the asset at path, indexed or not.
func (am *AssetManager) LoadPath(path string, params interface{}) (*metadata.Resource, error) {
	assetType := determineAssetType(path)
	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for %s", path)
	}
	return loader.Load(path, assetType, params)
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Unload(asset)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			if err := am.fsnotify.Close(); err != nil {
				core.LogError(err.Error())
			}
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err.Error())
			}
			return
		}
	}
	// Handle create or modify events
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if info, ok := am.handleFileEvent(e.Name); ok {
			am.fireChanged(info)
		}
	}
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
	}
}

func (am *AssetManager) fireChanged(info AssetInfo) {
	if am.eventBus == nil {
		return
	}
	ctx := core.EventContext{}
	ctx.Data.C[0] = info.Path
	ctx.Data.C[1] = info.Name
	ctx.Data.U32[0] = uint32(info.Type)
	am.eventBus.Fire(core.EventCodeAssetChanged, am, ctx)
}

// watchRecursive indexes every file under path and watches its directories.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	path = filepath.Clean(path)
	info := AssetInfo{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path: path,
		Type: assetType,
	}
	key := assetKey{name: info.Name, assetType: assetType}
	if existing, ok := am.byName[key]; ok && existing != path {
		core.LogWarn("%s asset '%s' found at %s and %s, keeping the first", assetType, info.Name, existing, path)
		return AssetInfo{}, false
	}
	if prev, ok := am.assets[path]; ok {
		info.LastLoaded = prev.LastLoaded
	}
	am.assets[path] = info
	am.byName[key] = path
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	path = filepath.Clean(path)
	info, ok := am.assets[path]
	if !ok {
		return
	}
	delete(am.assets, path)
	delete(am.byName, assetKey{name: info.Name, assetType: info.Type})
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".shadercfg":
		return metadata.ResourceTypeShader
	case ".amt":
		return metadata.ResourceTypeMaterial
	default:
		return metadata.ResourceTypeNone
	}
}
