package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

// MaterialLoader reads .amt files: the passes of a material and its default values.
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	if assetType != metadata.ResourceTypeMaterial {
		return nil, fmt.Errorf("material loader cannot load %s resources", assetType)
	}
	mCfg := &metadata.MaterialConfig{}
	size, err := decodeFile(path, mCfg)
	if err != nil {
		return nil, err
	}
	if mCfg.Name == "" {
		mCfg.Name = nameFromPath(path)
	}
	if err := validateMaterialConfig(mCfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     mCfg.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeMaterial,
		DataSize: size,
		Data:     mCfg,
	}, nil
}

func validateMaterialConfig(mCfg *metadata.MaterialConfig) error {
	if len(mCfg.Passes) == 0 {
		return fmt.Errorf("material '%s' has no passes", mCfg.Name)
	}
	passes := make(map[string]struct{}, len(mCfg.Passes))
	for i, p := range mCfg.Passes {
		if p.Name == "" {
			return fmt.Errorf("material '%s' pass %d has no name", mCfg.Name, i)
		}
		if _, ok := passes[p.Name]; ok {
			return fmt.Errorf("material '%s' declares pass '%s' twice", mCfg.Name, p.Name)
		}
		passes[p.Name] = struct{}{}
	}
	for _, d := range mCfg.Defaults {
		t, err := metadata.ShaderUniformTypeFromString(d.Type)
		if err != nil {
			return fmt.Errorf("material '%s' default '%s': %w", mCfg.Name, d.Name, err)
		}
		if n := t.Components(); n == 0 || n != len(d.Value) {
			return fmt.Errorf("material '%s' default '%s' of type %s has %d values", mCfg.Name, d.Name, d.Type, len(d.Value))
		}
	}
	return nil
}

func (ml *MaterialLoader) Unload(resource *metadata.Resource) error {
	if resource == nil {
		return fmt.Errorf("cannot unload a nil resource")
	}
	resource.Data = nil
	resource.DataSize = 0
	return nil
}
