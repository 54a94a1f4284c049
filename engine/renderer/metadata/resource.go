package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown or unsupported file. */
	ResourceTypeNone ResourceType = iota
	/** @brief Material resource type (.amt). */
	ResourceTypeMaterial
	/** @brief Shader resource type, or more accurately shader config (.shadercfg). */
	ResourceTypeShader
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeMaterial:
		return "material"
	case ResourceTypeShader:
		return "shader"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The resource type. */
	Type ResourceType
	/** @brief The size of the resource file in bytes. */
	DataSize uint64
	/** @brief The resource data, *ShaderConfig or *MaterialConfig. */
	Data interface{}
}
