package prereq

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/server-launcher/internal/service/common"
)

// defaultFileMode is used for archive entries that carry no permission bits.
const defaultFileMode os.FileMode = 0o644

// errIllegalPath is returned for entries that would land outside the destination.
var errIllegalPath = errors.New("illegal file path in archive")

// Unzip extracts the archive at src into dest, recreating each entry's relative path.
// Directory entries become directories; file entries get their parent directories
// created first. It returns the number of entries processed.
func Unzip(src, dest string) (int, error) {
	reader, err := zip.OpenReader(filepath.Clean(src))
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	dest = filepath.Clean(dest)

	if err = os.MkdirAll(dest, common.DefaultDirMode); err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	for index, file := range reader.File {
		if err = extractEntry(file, dest); err != nil {
			return index, fmt.Errorf("%s: %w", file.Name, err)
		}
	}

	return len(reader.File), nil
}

// extractEntry writes one archive entry below dest.
func extractEntry(file *zip.File, dest string) error {
	target := filepath.Join(dest, file.Name)

	// Zip slip: entries such as ../../etc/passwd must stay inside dest.
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return errIllegalPath
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, common.DefaultDirMode)
	}

	if err = os.MkdirAll(filepath.Dir(target), common.DefaultDirMode); err != nil {
		return err
	}

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = defaultFileMode
	}

	content, err := file.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = content.Close()
	}()

	output, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	//nolint:gosec // Runtime archives come from the configured distribution URL.
	if _, err = io.Copy(output, content); err != nil {
		_ = output.Close()

		return err
	}

	return output.Close()
}
