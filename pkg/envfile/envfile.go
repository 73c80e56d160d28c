package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/google/renameio/v2"
	"github.com/joho/godotenv"
)

// Read parses a dotenv file. A missing file reads as empty.
func Read(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return values, nil
}

// Merge applies updates on top of current and returns the merged values with
// the sorted list of keys whose value changed. Empty update values are
// ignored.
func Merge(current, updates map[string]string) (map[string]string, []string) {
	merged := make(map[string]string, len(current)+len(updates))
	for k, v := range current {
		merged[k] = v
	}

	var changed []string
	for k, v := range updates {
		if v == "" {
			continue
		}
		if old, ok := merged[k]; ok && old == v {
			continue
		}
		merged[k] = v
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return merged, changed
}

// Write replaces the file atomically with owner-only permissions
func Write(path string, values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", path, err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	defer pending.Cleanup()

	if _, err := pending.WriteString(content + "\n"); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}
