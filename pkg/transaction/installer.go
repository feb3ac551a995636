//go:generate mockgen -destination=./mocks/installer.go . Installer

package transaction

import (
	"context"
	"fmt"

	"github.com/glorpus-work/gotx/pkg/model"
)

// Installer is the low-level engine that applies a transaction to the
// package database and the filesystem. Calls are queued with the Add methods,
// ordered with Order, and then checked, tested and run.
type Installer interface {
	AddInstall(ref model.PkgRef, path string, upgrade bool) error
	AddErase(ref model.PkgRef) error
	AddReinstall(ref model.PkgRef, path string) error

	// Order sorts the queued elements into a dependency-safe execution order.
	Order() error
	// Clean drops everything queued so far.
	Clean()
	// Check runs the cheap dependency pass over the queued elements.
	Check() []Problem
	// Test performs a full trial run without changing anything.
	Test(ctx context.Context) ([]Problem, error)
	// Run applies the queued elements.
	Run(ctx context.Context) (Result, error)
	// DBVersion returns a checksum of the installed package set.
	DBVersion() (string, error)
}

// ProblemKind classifies a check or test problem.
type ProblemKind int

const (
	ProblemOther ProblemKind = iota
	// ProblemRpmlib means the installer itself is too old for a package.
	ProblemRpmlib
	ProblemDependency
	ProblemConflict
	ProblemDiskSpace
)

// Problem is one issue reported by Check or Test.
type Problem struct {
	Kind    ProblemKind
	Package string
	Message string
}

func (p Problem) String() string {
	if p.Package == "" {
		return p.Message
	}
	return fmt.Sprintf("%s: %s", p.Package, p.Message)
}

// ProblemStrings renders problems for error details.
func ProblemStrings(problems []Problem) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.String())
	}
	return out
}

// ItemError is a failure of one element during Run.
type ItemError struct {
	Ref     model.PkgRef
	Message string
}

// Result is the outcome of Installer.Run. A non-zero ReturnCode with item
// errors means some elements were applied and some were not.
type Result struct {
	ReturnCode int
	Errors     []ItemError
}

// Failed reports whether ref is among the failed elements.
func (r Result) Failed(ref model.PkgRef) bool {
	for _, e := range r.Errors {
		if e.Ref == ref {
			return true
		}
	}
	return false
}

// Applied returns the items of t the result does not report as failed.
func (r Result) Applied(t *Transaction) []*Item {
	out := make([]*Item, 0, t.Len())
	for _, it := range t.items {
		if r.Failed(it.Active()) {
			continue
		}
		out = append(out, it)
	}
	return out
}
