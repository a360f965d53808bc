package frigate

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes doc to path through a temporary file in the same
// directory, so a failed run never leaves a truncated config behind.
func WriteFile(path string, doc []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(doc); err != nil {
		return fmt.Errorf("write frigate config: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync frigate config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close frigate config: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod frigate config: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename frigate config: %w", err)
	}
	return nil
}
