// Package model provides the package identity types shared by every layer of
// gotx: NEVRA references and their ordering, package handles carrying
// repository metadata, and the reason a package is present on the system.
package model

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// PkgRef identifies one package build by name, epoch, version, release and
// architecture. Two references are equal iff all five fields match.
type PkgRef struct {
	Name    string `json:"name" yaml:"name"`
	Epoch   uint   `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	Version string `json:"version" yaml:"version"`
	Release string `json:"release" yaml:"release"`
	Arch    string `json:"arch" yaml:"arch"`
}

// Pkgtup is the tuple form of a PkgRef used as a lookup key.
type Pkgtup struct {
	Name    string
	Arch    string
	Epoch   uint
	Version string
	Release string
}

// Pkgtup returns the lookup key of r.
func (r PkgRef) Pkgtup() Pkgtup {
	return Pkgtup{Name: r.Name, Arch: r.Arch, Epoch: r.Epoch, Version: r.Version, Release: r.Release}
}

// Ref converts a lookup key back into a reference.
func (t Pkgtup) Ref() PkgRef {
	return PkgRef{Name: t.Name, Epoch: t.Epoch, Version: t.Version, Release: t.Release, Arch: t.Arch}
}

func (t Pkgtup) String() string {
	return t.Ref().String()
}

// String renders the NEVRA form name-[epoch:]version-release.arch; the epoch
// is omitted when zero.
func (r PkgRef) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteByte('-')
	b.WriteString(r.EVR())
	if r.Arch != "" {
		b.WriteByte('.')
		b.WriteString(r.Arch)
	}
	return b.String()
}

// EVR renders [epoch:]version-release.
func (r PkgRef) EVR() string {
	evr := r.Version + "-" + r.Release
	if r.Epoch > 0 {
		evr = strconv.FormatUint(uint64(r.Epoch), 10) + ":" + evr
	}
	return evr
}

// NA renders name.arch.
func (r PkgRef) NA() string {
	return r.Name + "." + r.Arch
}

// IsZero reports whether r is the empty reference.
func (r PkgRef) IsZero() bool {
	return r == PkgRef{}
}

// IsSource reports whether r is a source package.
func (r PkgRef) IsSource() bool {
	return r.Arch == "src" || r.Arch == "nosrc"
}

// SameNameArch reports whether a and b are builds of the same name and arch.
func SameNameArch(a, b PkgRef) bool {
	return a.Name == b.Name && a.Arch == b.Arch
}

// CompareEVR orders a and b by epoch, then version, then release. It returns
// -1, 0 or +1.
func CompareEVR(a, b PkgRef) int {
	switch {
	case a.Epoch < b.Epoch:
		return -1
	case a.Epoch > b.Epoch:
		return 1
	}
	if c := Vercmp(a.Version, b.Version); c != 0 {
		return c
	}
	return Vercmp(a.Release, b.Release)
}

// Compare is a total order over references: by name, then CompareEVR, then
// arch. Builds whose EVRs compare equal but are spelled differently, such as
// 1.0 and 1_0, are ordered by the raw version and release strings before the
// arch, so Compare returns 0 only when all five fields match.
func Compare(a, b PkgRef) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := CompareEVR(a, b); c != 0 {
		return c
	}
	if c := strings.Compare(a.Version, b.Version); c != 0 {
		return c
	}
	if c := strings.Compare(a.Release, b.Release); c != 0 {
		return c
	}
	return strings.Compare(a.Arch, b.Arch)
}

// Newer reports whether a is a later build than b.
func Newer(a, b PkgRef) bool {
	return CompareEVR(a, b) > 0
}

// ParsePkgRef parses name-[epoch:]version-release.arch.
func ParsePkgRef(s string) (PkgRef, error) {
	var ref PkgRef
	dot := strings.LastIndexByte(s, '.')
	if dot <= 0 || dot == len(s)-1 {
		return ref, fmt.Errorf("invalid package reference %q: missing arch", s)
	}
	ref.Arch = s[dot+1:]
	rest := s[:dot]

	dash := strings.LastIndexByte(rest, '-')
	if dash <= 0 || dash == len(rest)-1 {
		return ref, fmt.Errorf("invalid package reference %q: missing release", s)
	}
	ref.Release = rest[dash+1:]
	rest = rest[:dash]

	dash = strings.LastIndexByte(rest, '-')
	if dash <= 0 || dash == len(rest)-1 {
		return ref, fmt.Errorf("invalid package reference %q: missing version", s)
	}
	ref.Name = rest[:dash]
	ver := rest[dash+1:]
	if colon := strings.IndexByte(ver, ':'); colon >= 0 {
		epoch, err := strconv.ParseUint(ver[:colon], 10, 32)
		if err != nil {
			return PkgRef{}, fmt.Errorf("invalid package reference %q: bad epoch: %w", s, err)
		}
		ref.Epoch = uint(epoch)
		ver = ver[colon+1:]
	}
	if ver == "" {
		return PkgRef{}, fmt.Errorf("invalid package reference %q: empty version", s)
	}
	ref.Version = ver
	return ref, nil
}

// Validate reports whether r has every field its NEVRA form needs to parse
// back into r: a name, version, release and arch, and no '-' inside the
// version or release.
func (r PkgRef) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("package has no name")
	case r.Version == "" || r.Release == "" || r.Arch == "":
		return fmt.Errorf("package %s lacks version, release or arch", r.Name)
	case strings.ContainsRune(r.Version, '-'):
		return fmt.Errorf("package %s: version %q contains '-'", r.Name, r.Version)
	case strings.ContainsRune(r.Release, '-'):
		return fmt.Errorf("package %s: release %q contains '-'", r.Name, r.Release)
	case strings.ContainsRune(r.Version, ':'):
		return fmt.Errorf("package %s: version %q contains ':'", r.Name, r.Version)
	}
	return nil
}

// IsGlob reports whether pattern contains shell wildcard characters.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// ExactMatch reports whether spec names r literally, as a name, name.arch,
// name-version, name-version-release or full NEVRA (with or without epoch).
func (r PkgRef) ExactMatch(spec string) bool {
	for _, form := range r.forms() {
		if form == spec {
			return true
		}
	}
	return false
}

// GlobMatch reports whether the shell pattern matches any of r's textual forms.
// A malformed pattern never matches.
func (r PkgRef) GlobMatch(pattern string) bool {
	for _, form := range r.forms() {
		if ok, err := path.Match(pattern, form); err == nil && ok {
			return true
		}
	}
	return false
}

func (r PkgRef) forms() []string {
	vr := r.Version + "-" + r.Release
	forms := []string{
		r.Name,
		r.NA(),
		r.Name + "-" + r.Version,
		r.Name + "-" + vr,
		r.Name + "-" + vr + "." + r.Arch,
	}
	e := strconv.FormatUint(uint64(r.Epoch), 10)
	forms = append(forms,
		r.Name+"-"+e+":"+vr,
		r.Name+"-"+e+":"+vr+"."+r.Arch,
	)
	return forms
}
