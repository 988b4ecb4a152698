// Package discovery expands command-line arguments into the files to check.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/moby/patternmatcher"
)

// Options control expansion.
type Options struct {
	// Dir resolves relative arguments ("" = working directory).
	Dir string

	// Root is the project root; ignore patterns are relative to it and
	// .twlintignore is read from it. Defaults to Dir.
	Root string

	// Patterns are expanded under Dir when no arguments are given, and under
	// every directory argument.
	Patterns []string

	// Ignore are extra exclusion patterns (.dockerignore syntax).
	Ignore []string
}

// Discover returns de-duplicated, sorted absolute paths for args.
//
// Each argument is a file, a directory (expanded with opts.Patterns) or a
// doublestar pattern. Files named explicitly are returned even when they do
// not exist or match an ignore pattern; the caller decides how to report them.
func Discover(args []string, opts Options) ([]string, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	root := opts.Root
	if root == "" {
		root = dir
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, err
	}

	m, err := newMatcher(root, opts.Ignore)
	if err != nil {
		return nil, err
	}

	d := &discoverer{root: root, matcher: m, seen: make(map[string]bool)}

	if len(args) == 0 {
		args = []string{dir}
	}
	for _, arg := range args {
		if err := d.expand(dir, arg, opts.Patterns); err != nil {
			return nil, err
		}
	}

	sort.Strings(d.files)
	return d.files, nil
}

func newMatcher(root string, ignore []string) (*patternmatcher.PatternMatcher, error) {
	fromFile, err := LoadIgnoreFile(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", IgnoreFileName, err)
	}

	patterns := make([]string, 0, len(alwaysIgnored)+len(ignore)+len(fromFile))
	patterns = append(patterns, alwaysIgnored...)
	patterns = append(patterns, ignore...)
	patterns = append(patterns, fromFile...)

	m, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}
	return m, nil
}

type discoverer struct {
	root    string
	matcher *patternmatcher.PatternMatcher
	seen    map[string]bool
	files   []string
}

func (d *discoverer) add(path string) {
	if !d.seen[path] {
		d.seen[path] = true
		d.files = append(d.files, path)
	}
}

func (d *discoverer) expand(dir, arg string, patterns []string) error {
	path := arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && info.IsDir():
		for _, p := range patterns {
			if err := d.walk(path, p); err != nil {
				return err
			}
		}
		return nil
	case statErr == nil:
		d.add(path)
		return nil
	case !errors.Is(statErr, fs.ErrNotExist):
		return fmt.Errorf("reading %s: %w", arg, statErr)
	}

	slashed := filepath.ToSlash(path)
	if !hasMeta(slashed) {
		// A missing file is passed through for the caller to report.
		d.add(path)
		return nil
	}

	base, pattern := doublestar.SplitPattern(slashed)
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", arg)
	}
	return d.walk(filepath.FromSlash(base), pattern)
}

// walk adds the files under base matching pattern, pruning ignored directories.
func (d *discoverer) walk(base, pattern string) error {
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	prune := !d.matcher.Exclusions()

	return filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if entry != nil && entry.IsDir() && path != base {
				return fs.SkipDir
			}
			return err
		}

		ignored := d.ignored(path)
		if entry.IsDir() {
			if path != base && ignored && prune {
				return fs.SkipDir
			}
			return nil
		}
		if ignored {
			return nil
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			d.add(path)
		}
		return nil
	})
}

// ignored reports whether path matches an ignore pattern. Paths outside the
// project root are only checked against their own name.
func (d *discoverer) ignored(path string) bool {
	rel, err := filepath.Rel(d.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		rel = filepath.Base(path)
	}
	matched, err := d.matcher.MatchesOrParentMatches(rel)
	return err == nil && matched
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
