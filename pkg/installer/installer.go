// Package installer is the reference low-level installer of gotx. Packages
// are gzip-compressed tar archives carrying meta/package.json and a data/
// tree; installing one unpacks the tree under the root directory and records
// the owned files in a JSON database.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// DefaultToolVersion is matched against tool_requires when Options leave it
// empty.
const DefaultToolVersion = "1.0.0"

// Options configure an Installer.
type Options struct {
	// Root is the directory package files are installed under.
	Root string
	// DBPath is the installed database file.
	DBPath string
	// ToolVersion is the version packages declare tool_requires against.
	ToolVersion string
}

type elementKind int

const (
	elementInstall elementKind = iota
	elementReinstall
	elementErase
)

type element struct {
	kind    elementKind
	pkg     *model.Package
	path    string
	upgrade bool
}

// Installer applies transactions to a root directory. It is not safe for
// concurrent use.
type Installer struct {
	root     string
	dbPath   string
	tool     *version.Version
	db       *Database
	elements []*element
}

var _ transaction.Installer = (*Installer)(nil)

// New opens the installed database and returns an installer over it.
func New(opts Options) (*Installer, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("%w: installer root is empty", errors.ErrInvalidPath)
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidPath, err)
	}
	tv := opts.ToolVersion
	if tv == "" {
		tv = DefaultToolVersion
	}
	tool, err := version.NewVersion(tv)
	if err != nil {
		return nil, fmt.Errorf("invalid tool version %q: %w", tv, err)
	}
	db, err := LoadDatabase(opts.DBPath)
	if err != nil {
		return nil, err
	}
	return &Installer{root: root, dbPath: opts.DBPath, tool: tool, db: db}, nil
}

// Installed returns the packages of the installed database.
func (in *Installer) Installed() []*model.Package {
	records := in.db.Records()
	out := make([]*model.Package, 0, len(records))
	for _, r := range records {
		out = append(out, r.Snapshot())
	}
	return out
}

// AddInstall queues the archive at path. Its metadata must describe ref.
func (in *Installer) AddInstall(ref model.PkgRef, path string, upgrade bool) error {
	pkg, err := in.readPackage(ref, path)
	if err != nil {
		return err
	}
	in.elements = append(in.elements, &element{kind: elementInstall, pkg: pkg, path: path, upgrade: upgrade})
	return nil
}

// AddReinstall queues the archive at path over the installed build ref.
func (in *Installer) AddReinstall(ref model.PkgRef, path string) error {
	if in.db.Find(ref) == nil {
		return &errors.PackagesNotInstalledError{Specs: []string{ref.String()}}
	}
	pkg, err := in.readPackage(ref, path)
	if err != nil {
		return err
	}
	in.elements = append(in.elements, &element{kind: elementReinstall, pkg: pkg, path: path})
	return nil
}

// AddErase queues the removal of the installed build ref.
func (in *Installer) AddErase(ref model.PkgRef) error {
	rec := in.db.Find(ref)
	if rec == nil {
		return &errors.PackagesNotInstalledError{Specs: []string{ref.String()}}
	}
	in.elements = append(in.elements, &element{kind: elementErase, pkg: rec.Snapshot()})
	return nil
}

func (in *Installer) readPackage(ref model.PkgRef, path string) (*model.Package, error) {
	pkg, err := ReadMetadata(context.Background(), path)
	if err != nil {
		return nil, err
	}
	if pkg.PkgRef != ref {
		return nil, fmt.Errorf("%w: %s contains %s, expected %s", errors.ErrPackageInvalid, path, pkg.PkgRef, ref)
	}
	return pkg, nil
}

// Order puts providers before the packages requiring them. Installs run
// first, then erases with dependents removed before what they need.
func (in *Installer) Order() error {
	var adds, erases []*element
	for _, e := range in.elements {
		if e.kind == elementErase {
			erases = append(erases, e)
		} else {
			adds = append(adds, e)
		}
	}
	erases = providersFirst(erases)
	slices.Reverse(erases)
	in.elements = append(providersFirst(adds), erases...)
	return nil
}

func providersFirst(elems []*element) []*element {
	visited := make(map[*element]bool, len(elems))
	out := make([]*element, 0, len(elems))
	var visit func(e *element)
	visit = func(e *element) {
		if visited[e] {
			return
		}
		visited[e] = true
		for _, c := range e.pkg.RequiredCaps() {
			for _, d := range elems {
				if d != e && d.pkg.ProvidesCap(c) {
					visit(d)
				}
			}
		}
		out = append(out, e)
	}
	for _, e := range elems {
		visit(e)
	}
	return out
}

// Clean drops the queued elements.
func (in *Installer) Clean() {
	in.elements = nil
}

// Check validates tool requirements and the dependencies of the package set
// the queued elements leave behind.
func (in *Installer) Check() []transaction.Problem {
	var problems []transaction.Problem
	for _, e := range in.elements {
		if e.kind == elementErase {
			continue
		}
		problems = append(problems, in.checkTool(e.pkg)...)
	}

	before := in.Installed()
	after := in.finalSet()
	for _, p := range after {
		for _, c := range p.RequiredCaps() {
			if providedBy(after, c) {
				continue
			}
			if p.Installed() && !providedBy(before, c) {
				continue
			}
			problems = append(problems, transaction.Problem{
				Kind:    transaction.ProblemDependency,
				Package: p.String(),
				Message: fmt.Sprintf("requires %s, which nothing provides", c),
			})
		}
	}
	return problems
}

func (in *Installer) checkTool(pkg *model.Package) []transaction.Problem {
	var problems []transaction.Problem
	for _, req := range pkg.ToolRequires {
		c, err := version.NewConstraint(req)
		if err != nil {
			problems = append(problems, transaction.Problem{
				Kind:    transaction.ProblemRpmlib,
				Package: pkg.String(),
				Message: fmt.Sprintf("invalid tool requirement %q", req),
			})
			continue
		}
		if !c.Check(in.tool) {
			problems = append(problems, transaction.Problem{
				Kind:    transaction.ProblemRpmlib,
				Package: pkg.String(),
				Message: fmt.Sprintf("requires package tool %s, have %s", req, in.tool),
			})
		}
	}
	return problems
}

// finalSet is the installed set after the queued elements ran.
func (in *Installer) finalSet() []*model.Package {
	set := in.Installed()
	for _, e := range in.elements {
		switch e.kind {
		case elementErase:
			set = slices.DeleteFunc(set, func(p *model.Package) bool { return p.PkgRef == e.pkg.PkgRef })
		case elementReinstall:
		case elementInstall:
			set = slices.DeleteFunc(set, func(p *model.Package) bool { return e.replaces(p) })
			set = append(set, e.pkg)
		}
	}
	return set
}

// replaces reports whether installing e removes the installed package p.
func (e *element) replaces(p *model.Package) bool {
	if !e.upgrade || !p.Installed() {
		return false
	}
	return model.SameNameArch(p.PkgRef, e.pkg.PkgRef) || e.pkg.ObsoletesName(p.Name)
}

func providedBy(pkgs []*model.Package, capability string) bool {
	return slices.ContainsFunc(pkgs, func(p *model.Package) bool { return p.ProvidesCap(capability) })
}

// Test runs Check and then reads every queued archive, reporting files that
// would overwrite a package the transaction keeps.
func (in *Installer) Test(ctx context.Context) ([]transaction.Problem, error) {
	problems := in.Check()

	leaving := make(map[model.PkgRef]bool)
	for _, e := range in.elements {
		if e.kind == elementErase {
			leaving[e.pkg.PkgRef] = true
		}
	}
	for _, r := range in.db.Records() {
		for _, e := range in.elements {
			if e.kind == elementInstall && e.replaces(&r.Package) {
				leaving[r.PkgRef] = true
			}
		}
	}

	claimed := make(map[string]model.PkgRef)
	for _, e := range in.elements {
		if err := ctx.Err(); err != nil {
			return nil, errors.ErrInterrupted
		}
		if e.kind == elementErase {
			continue
		}
		files, err := dataFiles(ctx, e.path)
		if err != nil {
			problems = append(problems, transaction.Problem{Kind: transaction.ProblemOther, Package: e.pkg.String(), Message: err.Error()})
			continue
		}
		for _, f := range files {
			if other, ok := claimed[f]; ok {
				problems = append(problems, conflict(e.pkg, f, other))
				continue
			}
			claimed[f] = e.pkg.PkgRef
			owner := in.db.Owner(f)
			if owner == nil || owner.PkgRef == e.pkg.PkgRef || leaving[owner.PkgRef] {
				continue
			}
			problems = append(problems, conflict(e.pkg, f, owner.PkgRef))
		}
	}
	return problems, nil
}

func conflict(pkg *model.Package, file string, other model.PkgRef) transaction.Problem {
	return transaction.Problem{
		Kind:    transaction.ProblemConflict,
		Package: pkg.String(),
		Message: fmt.Sprintf("file /%s conflicts with %s", file, other),
	}
}

// Run applies the queued elements in order. A failing element is reported
// in the result and the rest still run; the database is saved at the end.
func (in *Installer) Run(ctx context.Context) (transaction.Result, error) {
	var res transaction.Result
	for _, e := range in.elements {
		var err error
		switch e.kind {
		case elementInstall, elementReinstall:
			err = in.install(ctx, e)
		case elementErase:
			err = in.erase(e.pkg.PkgRef)
		}
		if err != nil {
			logger.Error("Element failed", logger.Fields{"package": e.pkg.String(), "error": err.Error()})
			res.Errors = append(res.Errors, transaction.ItemError{Ref: e.pkg.PkgRef, Message: err.Error()})
		}
	}
	if len(res.Errors) > 0 {
		res.ReturnCode = 1
	}
	if err := in.db.Save(in.dbPath); err != nil {
		return res, errors.Wrap(err, "save installed database")
	}
	return res, nil
}

func (in *Installer) install(ctx context.Context, e *element) error {
	files, err := extract(ctx, e.path, in.root)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f] = true
	}

	for _, r := range in.db.Records() {
		if r.PkgRef == e.pkg.PkgRef || !e.replaces(&r.Package) {
			continue
		}
		in.removeFiles(r.Files, keep)
		in.db.Remove(r.PkgRef)
		logger.Debug("Replaced package", logger.Fields{"old": r.String(), "new": e.pkg.String()})
	}
	if old := in.db.Find(e.pkg.PkgRef); old != nil {
		in.removeFiles(old.Files, keep)
	}

	pkg := *e.pkg
	pkg.LocalPath = ""
	in.db.Add(&Record{Package: pkg, Files: files})
	logger.Info("Installed package", logger.Fields{"package": e.pkg.String(), "files": len(files)})
	return nil
}

func (in *Installer) erase(ref model.PkgRef) error {
	rec := in.db.Find(ref)
	if rec == nil {
		return &errors.PackagesNotInstalledError{Specs: []string{ref.String()}}
	}
	shared := make(map[string]bool)
	for _, r := range in.db.Records() {
		if r.PkgRef == ref {
			continue
		}
		for _, f := range r.Files {
			shared[f] = true
		}
	}
	in.removeFiles(rec.Files, shared)
	in.db.Remove(ref)
	logger.Info("Erased package", logger.Fields{"package": ref.String()})
	return nil
}

// removeFiles deletes files under the root, skipping keep, and prunes the
// directories it empties.
func (in *Installer) removeFiles(files []string, keep map[string]bool) {
	dirs := make(map[string]bool)
	for _, f := range files {
		if keep[f] {
			continue
		}
		path := filepath.Join(in.root, filepath.FromSlash(f))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove file", logger.Fields{"path": path, "error": err.Error()})
			continue
		}
		dirs[filepath.Dir(path)] = true
	}
	in.pruneDirs(dirs)
}

func (in *Installer) pruneDirs(dirs map[string]bool) {
	root := filepath.Clean(in.root)
	for len(dirs) > 0 {
		next := make(map[string]bool)
		for dir := range dirs {
			if dir == root || !filepath.IsAbs(dir) || len(dir) <= len(root) {
				continue
			}
			if err := os.Remove(dir); err == nil {
				next[filepath.Dir(dir)] = true
			}
		}
		dirs = next
	}
}

// DBVersion returns the checksum of the installed package set.
func (in *Installer) DBVersion() (string, error) {
	return in.db.Version(), nil
}
