package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"asrd/internal/common/fsutil"
)

// weightMarkers identify a local model directory.
var weightMarkers = []string{"config.json", "model.safetensors", "model.safetensors.index.json"}

// LoadDir scans dir for model directories and returns id -> absolute path.
// A subdirectory counts as a model when it holds one of the weight markers;
// the directory name is the model id.
func LoadDir(dir string) (map[string]string, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(abs, e.Name())
		for _, marker := range weightMarkers {
			if fsutil.IsFile(filepath.Join(p, marker)) {
				out[e.Name()] = p
				break
			}
		}
	}
	return out, nil
}
