package loaders

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/renderer/metadata"
)

// ShaderLoader reads .shadercfg files: the stages of a shader and the constant
// blocks its permutations may declare.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	if assetType != metadata.ResourceTypeShader {
		return nil, fmt.Errorf("shader loader cannot load %s resources", assetType)
	}
	config := &metadata.ShaderConfig{}
	size, err := decodeFile(path, config)
	if err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = nameFromPath(path)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     config.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: size,
		Data:     config,
	}, nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	if resource == nil {
		return fmt.Errorf("cannot unload a nil resource")
	}
	resource.Data = nil
	resource.DataSize = 0
	return nil
}
