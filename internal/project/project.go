// Package project locates the Tailwind CSS project a check runs against and
// picks the language server settings profile for it.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"

	"github.com/tinovyatkin/twlint/internal/engine"
)

// ErrNoProject is returned when no Tailwind CSS project can be found.
var ErrNoProject = errors.New("no Tailwind CSS project found")

// Profile names.
const (
	ProfileAuto = "auto"
	ProfileV3   = "v3"
	ProfileV4   = "v4"
)

// configPattern matches Tailwind config files at the project root.
const configPattern = "tailwind.config.{js,cjs,mjs,ts,cts,mts}"

// skipDirs are never searched for CSS entry points.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
}

// Project is a detected Tailwind CSS project.
type Project struct {
	// Root is the directory holding package.json (or the start directory).
	Root string

	// Version is the installed or declared Tailwind version ("" when unknown).
	Version string

	// ConfigFiles are tailwind.config.* files at Root.
	ConfigFiles []string

	// CSSEntries are stylesheets importing Tailwind.
	CSSEntries []string

	// Profile is "v3" or "v4".
	Profile string

	// v4Entry is set when a CSS entry uses @import "tailwindcss".
	v4Entry bool
}

// Options control detection.
type Options struct {
	// Dir is where detection starts ("" = working directory).
	Dir string

	// Profile is auto, v3 or v4. Anything but auto skips version-based selection
	// and allows running without a detected project.
	Profile string
}

// Detect finds the project containing opts.Dir.
func Detect(opts Options) (*Project, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", opts.Dir, err)
	}

	override := opts.Profile
	if override == "" {
		override = ProfileAuto
	}
	switch override {
	case ProfileAuto, ProfileV3, ProfileV4:
	default:
		return nil, fmt.Errorf("unknown profile %q (want auto, v3 or v4)", override)
	}

	p := &Project{Root: FindRoot(dir)}
	p.Version = detectVersion(p.Root)

	configs, err := doublestar.Glob(os.DirFS(p.Root), configPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("searching Tailwind config in %s: %w", p.Root, err)
	}
	for _, c := range configs {
		p.ConfigFiles = append(p.ConfigFiles, filepath.Join(p.Root, filepath.FromSlash(c)))
	}
	sort.Strings(p.ConfigFiles)

	if err := p.findCSSEntries(); err != nil {
		return nil, err
	}

	if override == ProfileAuto && p.Version == "" && len(p.ConfigFiles) == 0 && len(p.CSSEntries) == 0 {
		return nil, fmt.Errorf("%w in %s (install tailwindcss or pass --profile)", ErrNoProject, p.Root)
	}

	if override != ProfileAuto {
		p.Profile = override
	} else {
		p.Profile = p.selectProfile()
	}
	return p, nil
}

// FindRoot returns the nearest directory at or above dir holding a
// package.json, or dir itself.
func FindRoot(dir string) string {
	for cur := dir; ; {
		if info, err := os.Stat(filepath.Join(cur, "package.json")); err == nil && !info.IsDir() {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// Major returns the major Tailwind version, or 0 when unknown.
func (p *Project) Major() uint64 {
	if p.Version == "" {
		return 0
	}
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		return 0
	}
	return v.Major()
}

func (p *Project) selectProfile() string {
	switch major := p.Major(); {
	case major >= 4:
		return ProfileV4
	case major > 0:
		return ProfileV3
	case p.v4Entry:
		return ProfileV4
	default:
		return ProfileV3
	}
}

// State converts the project into the context handed to an engine.
func (p *Project) State(settings map[string]any) engine.State {
	files := make([]string, 0, len(p.ConfigFiles)+len(p.CSSEntries))
	files = append(files, p.ConfigFiles...)
	files = append(files, p.CSSEntries...)
	return engine.State{
		Root:            p.Root,
		TailwindVersion: p.Version,
		Profile:         p.Profile,
		ConfigFiles:     files,
		Settings:        settings,
	}
}

// findCSSEntries collects stylesheets that pull in Tailwind.
func (p *Project) findCSSEntries() error {
	fsys := os.DirFS(p.Root)
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are not fatal for detection.
			if d != nil && d.IsDir() && path != "." {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != "." && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := doublestar.Match("**/*.css", path); !ok {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil
		}
		kind := classifyCSS(string(data))
		if kind == cssNone {
			return nil
		}
		p.CSSEntries = append(p.CSSEntries, filepath.Join(p.Root, filepath.FromSlash(path)))
		if kind == cssImport {
			p.v4Entry = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("searching CSS entry points in %s: %w", p.Root, err)
	}
	return nil
}

type cssKind int

const (
	cssNone cssKind = iota
	cssDirective
	cssImport
)

func classifyCSS(content string) cssKind {
	if strings.Contains(content, `@import "tailwindcss"`) || strings.Contains(content, `@import 'tailwindcss'`) {
		return cssImport
	}
	if strings.Contains(content, "@tailwind ") {
		return cssDirective
	}
	return cssNone
}

// tailwindPackages are checked in order when reading declared dependencies.
var tailwindPackages = []string{
	"tailwindcss",
	"@tailwindcss/postcss",
	"@tailwindcss/vite",
	"@tailwindcss/cli",
}

// detectVersion prefers the installed package, searching node_modules up
// the tree for hoisted installs, then the ranges declared in package.json.
func detectVersion(root string) string {
	for cur := root; ; {
		data, err := os.ReadFile(filepath.Join(cur, "node_modules", "tailwindcss", "package.json"))
		if err == nil {
			if v := normalizeVersion(gjson.GetBytes(data, "version").String()); v != "" {
				return v
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}
	for _, section := range []string{"dependencies", "devDependencies", "peerDependencies"} {
		deps := gjson.GetBytes(data, section).Map()
		for _, name := range tailwindPackages {
			if dep, ok := deps[name]; ok {
				if v := normalizeVersion(dep.String()); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// normalizeVersion turns a version or simple range ("^3.4.1", ">=4.0.0 <5")
// into a version string, or "" when it names no concrete version.
func normalizeVersion(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "||"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.TrimLeft(s, "^~>=<v")
	if s == "" {
		return ""
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return ""
	}
	return v.String()
}
