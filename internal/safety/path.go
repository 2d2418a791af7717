package safety

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PathSandboxConfig confines path-taking tools to a set of directories.
type PathSandboxConfig struct {
	Enabled bool `yaml:"enabled"`

	// AllowedPaths are absolute directory prefixes a path may resolve
	// into. An empty list means unrestricted.
	AllowedPaths []string `yaml:"allowed_paths"`
}

// SensitiveFilesConfig guards credential and key files independently of the
// sandbox.
type SensitiveFilesConfig struct {
	Enabled bool `yaml:"enabled"`

	// Patterns are user-supplied regexes added to the built-in catalog.
	Patterns []string `yaml:"patterns"`
}

// PathGuard performs the sandbox and sensitive-file checks. Safe for
// concurrent use: all state is immutable after construction.
type PathGuard struct {
	sandbox       PathSandboxConfig
	sensitive     SensitiveFilesConfig
	allowedRoots  []string
	userSensitive []*regexp.Regexp
}

// NewPathGuard compiles the user-supplied sensitive patterns and normalises
// the allowed roots.
func NewPathGuard(sandbox PathSandboxConfig, sensitive SensitiveFilesConfig) (*PathGuard, error) {
	g := &PathGuard{
		sandbox:   sandbox,
		sensitive: sensitive,
	}

	// Roots are canonicalised the same way checked paths are, so the
	// comparison is symlink-consistent.
	for _, p := range sandbox.AllowedPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g.allowedRoots = append(g.allowedRoots, ResolvePath(p, "/"))
	}

	for _, p := range sensitive.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("safety: sensitive pattern %q: %w", p, err)
		}
		g.userSensitive = append(g.userSensitive, re)
	}

	return g, nil
}

// ResolvePath canonicalises a path: relative paths are joined onto workDir,
// symlinks are followed, and if the target does not exist yet the path is
// normalised lexically instead. Never fails on a missing file.
func ResolvePath(p, workDir string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(workDir, p)
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}

// CheckSandbox reports whether a path resolves inside one of the allowed
// directories. With the sandbox disabled or no allowed paths configured,
// every path passes.
func (g *PathGuard) CheckSandbox(p, workDir string) Decision {
	if !g.sandbox.Enabled || len(g.allowedRoots) == 0 {
		return allow()
	}

	resolved := ResolvePath(p, workDir)
	for _, root := range g.allowedRoots {
		if pathWithin(resolved, root) {
			return allow()
		}
	}
	return deny("path %q is outside the sandbox (allowed: %s)",
		p, strings.Join(g.allowedRoots, ", "))
}

// CheckSensitive reports whether a path matches the sensitive-file catalog.
// The path is resolved first so a symlink cannot disguise its target.
func (g *PathGuard) CheckSensitive(p, workDir string) Decision {
	if !g.sensitive.Enabled {
		return allow()
	}

	resolved := filepath.ToSlash(ResolvePath(p, workDir))
	for _, re := range sensitivePathPatterns {
		if re.MatchString(resolved) {
			return deny("path %q matches sensitive file pattern %q", p, re.String())
		}
	}
	for _, re := range g.userSensitive {
		if re.MatchString(resolved) {
			return deny("path %q matches configured sensitive pattern %q", p, re.String())
		}
	}
	return allow()
}

// pathWithin reports whether p equals root or is a descendant of it.
// A bare prefix match is not enough: /home/u/project-evil must not count
// as inside /home/u/project.
func pathWithin(p, root string) bool {
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+string(filepath.Separator))
}
