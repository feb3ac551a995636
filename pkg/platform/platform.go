package platform

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Platform represents the running OS and its base package arch.
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// CurrentPlatform returns the current platform.
func CurrentPlatform() Platform {
	goos := runtime.GOOS
	if goos == "" {
		goos = "unknown"
	}
	return Platform{
		OS:   strings.ToLower(goos),
		Arch: BaseArch(),
	}
}

// String returns a string representation of the platform
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// BaseArch returns the package arch of the running machine.
func BaseArch() string {
	return NormalizeArch(runtime.GOARCH)
}

// NormalizeArch maps Go and uname style architecture names onto package
// arch names.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "amd64", "x64", "x86_64":
		return ArchX86_64
	case "386", "x86", "i386", "i486", "i586", "i686":
		return ArchI686
	case "arm64", "aarch64":
		return ArchAarch64
	case "arm", "armv7l", "armv7hl":
		return ArchArmv7hl
	default:
		return arch
	}
}

// CompatibleArches returns the package arches installable on base, best
// first. Unknown bases only accept their own arch and noarch.
func CompatibleArches(base string) []string {
	base = NormalizeArch(base)
	if list, ok := compatible[base]; ok {
		return slices.Clone(list)
	}
	return []string{base, ArchNoarch}
}

// IsCompatible reports whether a package built for arch installs on base.
func IsCompatible(base, arch string) bool {
	if IsSource(arch) {
		return false
	}
	return slices.Contains(CompatibleArches(base), arch)
}

// IsSource reports whether arch denotes a source package.
func IsSource(arch string) bool {
	return arch == ArchSrc || arch == ArchNosrc
}
