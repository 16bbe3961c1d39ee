package call

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/meshcall/meshcall/internal/transfer"
)

// Save writes a received file into dir without clobbering existing files.
// It returns the path actually written.
func Save(file transfer.ReceivedFile, dir string) (string, error) {
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", transfer.NewFileError("create directory", dir, err)
		}
	}

	// Strip any path components a remote might have put in the name.
	name := filepath.Base(file.Name)
	if name == "." || name == string(filepath.Separator) {
		name = "download"
	}

	path := uniquePath(filepath.Join(dir, name))
	if err := os.WriteFile(path, file.Data, 0644); err != nil {
		return "", transfer.NewFileError("write file", name, err)
	}
	return path, nil
}

// uniquePath returns path, or path with (1), (2), etc. appended before the
// extension if a file already exists there.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	withoutExt := path[:len(path)-len(ext)]

	counter := 1
	for {
		candidate := fmt.Sprintf("%s (%d)%s", withoutExt, counter, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		counter++
	}
}
