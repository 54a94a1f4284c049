package core

// LogConfig controls the engine logger. Level is one of debug, info, warn, error, fatal.
type LogConfig struct {
	Level        string `toml:"level"`
	ReportCaller bool   `toml:"report_caller"`
}

// ShaderConfig controls the shader permutation caches.
type ShaderConfig struct {
	// SortMacros hashes macro sets in canonical order so logically equal sets share a permutation.
	SortMacros     bool   `toml:"sort_macros"`
	MaxShaderCount uint16 `toml:"max_shader_count"`
}

type MaterialConfig struct {
	MaxMaterialCount uint32 `toml:"max_material_count"`
}

type AnimationConfig struct {
	MaxBones uint32 `toml:"max_bones"`
	// Workers sizes the job system that evaluates poses. One worker evaluates serially.
	Workers int `toml:"workers"`
	// BindPoseFallback poses bones without a channel at their bind pose instead of identity.
	BindPoseFallback bool `toml:"bind_pose_fallback"`
}

// DeviceConfig sizes the transient upload ring of the render device.
type DeviceConfig struct {
	RingBufferSize uint64 `toml:"ring_buffer_size"`
	RingAlignment  uint64 `toml:"ring_alignment"`
}

type AssetsConfig struct {
	BasePath string `toml:"base_path"`
	Watch    bool   `toml:"watch"`
}

// Config is the engine configuration file.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Shader    ShaderConfig    `toml:"shader"`
	Material  MaterialConfig  `toml:"material"`
	Animation AnimationConfig `toml:"animation"`
	Device    DeviceConfig    `toml:"device"`
	Assets    AssetsConfig    `toml:"assets"`
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:        "info",
			ReportCaller: true,
		},
		Shader: ShaderConfig{
			SortMacros:     true,
			MaxShaderCount: 1024,
		},
		Material: MaterialConfig{
			MaxMaterialCount: 1024,
		},
		Animation: AnimationConfig{
			MaxBones: 128,
			Workers:  4,
		},
		Device: DeviceConfig{
			RingBufferSize: 1 << 20,
			RingAlignment:  256,
		},
		Assets: AssetsConfig{
			BasePath: "assets",
			Watch:    false,
		},
	}
}
