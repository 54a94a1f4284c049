package loaders

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// decodeFile strictly decodes the TOML file at path into out. Unknown keys are errors
// so that typos in asset files do not go unnoticed.
func decodeFile(path string, out interface{}) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return 0, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return uint64(info.Size()), nil
}

// nameFromPath returns the file name without directory and extension.
func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
