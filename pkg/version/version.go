// Package version reports the server version announced during initialize.
package version

import (
	"runtime/debug"
	"sync"
)

var (
	mu sync.RWMutex
	// version may be overridden with -ldflags "-X .../pkg/version.version=v1.2.3".
	version = ""
)

// Version returns the module version when the binary was built from a
// tagged module, otherwise the linker-provided or Set value.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	mu.RLock()
	defer mu.RUnlock()
	if version == "" {
		return "dev"
	}
	return version
}

// Set records v unless a version was already linked in.
func Set(v string) {
	mu.Lock()
	defer mu.Unlock()
	if v != "" && version == "" {
		version = v
	}
}

// Revision returns the VCS revision embedded by the go tool, shortened to
// twelve characters, or "".
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
