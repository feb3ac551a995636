package model

import (
	"slices"
	"strings"
)

// Package is a handle on one package build: its identity plus the repository
// metadata the pipeline and the installer need. State is scratch space owned
// by the working set while a transaction is being built.
type Package struct {
	PkgRef

	Summary      string   `json:"summary,omitempty"`
	Repo         string   `json:"repo,omitempty"`
	Location     string   `json:"location,omitempty"`
	Checksum     string   `json:"checksum,omitempty"`
	Size         int64    `json:"size,omitempty"`
	Requires     []string `json:"requires,omitempty"`
	Provides     []string `json:"provides,omitempty"`
	Obsoletes    []string `json:"obsoletes,omitempty"`
	ToolRequires []string `json:"tool_requires,omitempty"`
	SourceRPM    string   `json:"sourcerpm,omitempty"`

	// LocalPath is set once the package file is available on disk.
	LocalPath string `json:"-"`
	State     string `json:"-"`
}

// Ref returns the identity of p.
func (p *Package) Ref() PkgRef {
	return p.PkgRef
}

// Installed reports whether p comes from the installed package database.
func (p *Package) Installed() bool {
	return p.Repo == InstalledRepo
}

// InstalledRepo is the repository name of installed packages.
const InstalledRepo = "@System"

// ProvidesCap reports whether p provides the capability name. Every package
// implicitly provides its own name.
func (p *Package) ProvidesCap(name string) bool {
	if p.Name == name {
		return true
	}
	return slices.ContainsFunc(p.Provides, func(c string) bool {
		return capName(c) == name
	})
}

// ObsoletesName reports whether p declares an obsoletion of name.
func (p *Package) ObsoletesName(name string) bool {
	return slices.ContainsFunc(p.Obsoletes, func(c string) bool {
		return capName(c) == name
	})
}

// RequiredCaps returns the names of the capabilities p requires, without any
// version constraint.
func (p *Package) RequiredCaps() []string {
	out := make([]string, 0, len(p.Requires))
	for _, r := range p.Requires {
		out = append(out, capName(r))
	}
	return out
}

// capName strips a trailing version constraint ("foo >= 1.0" -> "foo").
func capName(c string) string {
	if i := strings.IndexAny(c, " <>="); i >= 0 {
		return strings.TrimSpace(c[:i])
	}
	return c
}

// Refs maps handles to their references.
func Refs(pkgs []*Package) []PkgRef {
	out := make([]PkgRef, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.PkgRef)
	}
	return out
}

// SortRefs sorts refs in place by Compare.
func SortRefs(refs []PkgRef) {
	slices.SortFunc(refs, Compare)
}
