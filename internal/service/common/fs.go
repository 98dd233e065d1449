//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import "os"

// DefaultDirMode is used for directories the launcher creates.
const DefaultDirMode os.FileMode = 0o755

// FileExists reports whether path names a regular file. Symlinks are followed.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}
