package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-core/engine/core"
)

// LoadConfig reads the TOML engine config at path over the defaults. Keys missing
// from the file keep their default value; unknown keys are an error.
func LoadConfig(path string) (core.Config, error) {
	config := core.DefaultConfig()
	if path == "" {
		return config, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return config, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}
