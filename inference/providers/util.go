// Package providers - Utility functions.
package providers

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibEnv overrides the shared library location when set.
const SharedLibEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the default path to the shared library for the
// current platform, or "" when the platform has no known build.
//
// Returns:
//   - string: The path to the shared library.
func GetSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll"
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}

// ResolveSharedLibPath picks the shared library to load: the explicit path,
// then SharedLibEnv, then the platform default.
//
// Arguments:
//   - explicit: A configured path. May be empty.
//
// Returns:
//   - string: An absolute path to an existing file.
//   - error: An error if no candidate exists.
func ResolveSharedLibPath(explicit string) (string, error) {
	candidates := []string{explicit, os.Getenv(SharedLibEnv), GetSharedLibPath()}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return filepath.Abs(c)
		}
	}
	return "", errors.Errorf("ONNX Runtime library not found (tried %q, $%s, platform default %q)",
		explicit, SharedLibEnv, GetSharedLibPath())
}
