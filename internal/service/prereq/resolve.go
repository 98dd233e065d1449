package prereq

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/server-launcher/internal/service/common"
)

// ResolveExecutable returns command when it can be found in PATH. Otherwise it looks for
// bin/<command> inside installDir, or inside a single level of subdirectories of it,
// where runtime archives usually keep their top-level folder. When nothing matches the
// bare command is returned so the caller reports the original name.
func ResolveExecutable(command, installDir string) string {
	if _, err := exec.LookPath(command); err == nil {
		return command
	}

	if installDir == "" || strings.ContainsRune(command, '/') || strings.ContainsRune(command, filepath.Separator) {
		return command
	}

	name := command
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}

	candidates := []string{filepath.Join(installDir, "bin", name)}

	nested, err := filepath.Glob(filepath.Join(installDir, "*", "bin", name))
	if err == nil {
		candidates = append(candidates, nested...)
	}

	for _, candidate := range candidates {
		if !common.FileExists(candidate) {
			continue
		}

		absolute, err := filepath.Abs(candidate)
		if err != nil {
			return candidate
		}

		return absolute
	}

	return command
}
