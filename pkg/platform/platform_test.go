package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentPlatform(t *testing.T) {
	p := CurrentPlatform()
	assert.Equal(t, runtime.GOOS, p.OS)
	assert.Equal(t, NormalizeArch(runtime.GOARCH), p.Arch)
	assert.Equal(t, p.OS+"/"+p.Arch, p.String())
}

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"amd64", "x86_64"},
		{"x86_64", "x86_64"},
		{"X64", "x86_64"},
		{"386", "i686"},
		{"i586", "i686"},
		{"arm64", "aarch64"},
		{"armv7l", "armv7hl"},
		{" ppc64le ", "ppc64le"},
		{"unknownarch", "unknownarch"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeArch(tt.input))
		})
	}
}

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		arch     string
		expected bool
	}{
		{"same arch", "x86_64", "x86_64", true},
		{"multilib", "x86_64", "i686", true},
		{"go arch name", "amd64", "noarch", true},
		{"noarch everywhere", "s390x", "noarch", true},
		{"foreign arch", "x86_64", "aarch64", false},
		{"no 64 on 32", "i686", "x86_64", false},
		{"source never", "x86_64", "src", false},
		{"unknown base", "mips", "mips", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCompatible(tt.base, tt.arch))
		})
	}
}

func TestCompatibleArchesIsACopy(t *testing.T) {
	list := CompatibleArches("aarch64")
	list[0] = "mutated"
	assert.Equal(t, "aarch64", CompatibleArches("aarch64")[0])
}
