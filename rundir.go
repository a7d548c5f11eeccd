package dfk

import (
	"fmt"
	"os"
	"path/filepath"
)

// allocateRunDir creates and returns the next unused root/runNNN
// directory, starting from run000. root is created if it does not already
// exist.
func allocateRunDir(root string) (string, error) {
	if root == "" {
		root = "runinfo"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}

	for i := 0; ; i++ {
		candidate := filepath.Join(root, fmt.Sprintf("run%03d", i))
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
}
