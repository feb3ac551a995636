package platform

// Package platform maps the running machine onto package architecture names
// and decides which package architectures it can install.

const (
	// OSWindows represents the Windows operating system.
	OSWindows = "windows"
	// OSLinux represents the Linux operating system.
	OSLinux = "linux"
	// OSDarwin represents the macOS operating system.
	OSDarwin = "darwin"

	ArchNoarch  = "noarch"
	ArchX86_64  = "x86_64"
	ArchI686    = "i686"
	ArchAarch64 = "aarch64"
	ArchArmv7hl = "armv7hl"
	ArchPpc64le = "ppc64le"
	ArchS390x   = "s390x"
	ArchRiscv64 = "riscv64"
	// ArchSrc and ArchNosrc mark source packages, which are never installable.
	ArchSrc   = "src"
	ArchNosrc = "nosrc"
)

// compatible lists, per base arch, the package arches it can install.
var compatible = map[string][]string{
	ArchX86_64:  {ArchX86_64, "athlon", ArchI686, "i586", "i486", "i386", ArchNoarch},
	ArchI686:    {ArchI686, "i586", "i486", "i386", ArchNoarch},
	ArchAarch64: {ArchAarch64, ArchNoarch},
	ArchArmv7hl: {ArchArmv7hl, "armv7l", "armv6l", "armv5tel", ArchNoarch},
	ArchPpc64le: {ArchPpc64le, ArchNoarch},
	ArchS390x:   {ArchS390x, ArchNoarch},
	ArchRiscv64: {ArchRiscv64, ArchNoarch},
}
