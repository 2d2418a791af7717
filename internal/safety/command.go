// Package safety classifies shell commands and filesystem paths before a
// tool is allowed to run. It is a cooperative policy layer: the decision of
// whether to invoke a tool is governed here, not the tool's process.
package safety

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// FilterMode selects the command filter strategy.
type FilterMode string

// Filter modes.
const (
	// ModeBlock permits everything except hard-blocked and user-blocked
	// patterns. This is the default, permissive mode.
	ModeBlock FilterMode = "block"

	// ModeAllow permits only commands whose every base command appears in
	// the allowlist. Restrictive; fails closed on unparseable input.
	ModeAllow FilterMode = "allow"
)

// CommandFilterConfig configures the command filter.
type CommandFilterConfig struct {
	Enabled bool       `yaml:"enabled"`
	Mode    FilterMode `yaml:"mode"`

	// BlockPatterns are user-supplied regexes checked in block mode in
	// addition to the hard-blocked set.
	BlockPatterns []string `yaml:"block_patterns"`

	// AllowedCommands extends the allow-mode base-command allowlist.
	AllowedCommands []string `yaml:"allowed_commands"`
}

// Decision is the outcome of a safety check. A rejected decision carries a
// human-readable reason naming the violated rule.
type Decision struct {
	Allowed bool
	Reason  string
}

// allow is the passing decision.
func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CommandFilter classifies shell command strings as allowed or blocked.
// It is safe for concurrent use: all state is immutable after construction.
type CommandFilter struct {
	mode       FilterMode
	userBlock  []*regexp.Regexp
	extraAllow map[string]struct{}
}

// NewCommandFilter compiles the user-supplied patterns and returns a filter.
// Invalid regexes are a configuration error, reported at construction.
func NewCommandFilter(cfg CommandFilterConfig) (*CommandFilter, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeBlock
	}
	if mode != ModeBlock && mode != ModeAllow {
		return nil, fmt.Errorf("safety: unknown command filter mode %q", mode)
	}

	f := &CommandFilter{
		mode:       mode,
		extraAllow: make(map[string]struct{}, len(cfg.AllowedCommands)),
	}

	for _, p := range cfg.BlockPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("safety: block pattern %q: %w", p, err)
		}
		f.userBlock = append(f.userBlock, re)
	}

	for _, c := range cfg.AllowedCommands {
		c = strings.TrimSpace(c)
		if c != "" {
			f.extraAllow[c] = struct{}{}
		}
	}

	return f, nil
}

// Mode returns the configured filter mode.
func (f *CommandFilter) Mode() FilterMode { return f.mode }

// Classify decides whether a shell command may run. Hard-blocked patterns
// are checked first and win in every mode; no configuration can bypass them.
func (f *CommandFilter) Classify(command string) Decision {
	for _, rule := range hardBlockRules {
		if rule.pattern.MatchString(command) {
			return deny("hard-blocked: %s", rule.reason)
		}
	}

	switch f.mode {
	case ModeAllow:
		return f.classifyAllowMode(command)
	default:
		return f.classifyBlockMode(command)
	}
}

func (f *CommandFilter) classifyBlockMode(command string) Decision {
	for _, re := range f.userBlock {
		if re.MatchString(command) {
			return deny("blocked by configured pattern %q", re.String())
		}
	}
	return allow()
}

func (f *CommandFilter) classifyAllowMode(command string) Decision {
	candidates := ExtractBaseCommands(command)
	if len(candidates) == 0 {
		// Unparseable input fails closed.
		return deny("could not extract any command from %q", command)
	}

	for _, c := range candidates {
		if _, ok := allowedCommands[c]; ok {
			continue
		}
		if _, ok := f.extraAllow[c]; ok {
			continue
		}
		return deny("command %q is not in the allowlist", c)
	}
	return allow()
}

// subshellPattern matches $(...) command substitutions without nested
// parentheses; nesting is handled by repeated extraction.
var (
	subshellPattern = regexp.MustCompile(`\$\(([^()]*)\)`)
	backtickPattern = regexp.MustCompile("`([^`]*)`")
	segmentPattern  = regexp.MustCompile(`\|\||&&|;|\|`)
	envAssignment   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)
)

// ExtractBaseCommands returns every base command named in a shell command
// string: one per pipeline/sequencing segment, plus the commands inside
// $(...) and backtick substitutions, recursively. Wrapper prefixes (sudo,
// nohup, env, ...) and leading VAR=value assignments are stripped, and
// path-qualified commands are reduced to their basename.
func ExtractBaseCommands(command string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(c string) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	extractInto(command, add, 0)
	return out
}

// maxSubshellDepth bounds recursion into nested command substitutions.
const maxSubshellDepth = 16

func extractInto(command string, add func(string), depth int) {
	if depth > maxSubshellDepth {
		return
	}

	// Pull out substitutions first and recurse into their bodies; the
	// remainder is analysed without them so a substitution in argument
	// position does not become a candidate itself.
	remainder := subshellPattern.ReplaceAllStringFunc(command, func(m string) string {
		inner := subshellPattern.FindStringSubmatch(m)[1]
		extractInto(inner, add, depth+1)
		return ""
	})
	remainder = backtickPattern.ReplaceAllStringFunc(remainder, func(m string) string {
		inner := backtickPattern.FindStringSubmatch(m)[1]
		extractInto(inner, add, depth+1)
		return ""
	})

	for _, segment := range segmentPattern.Split(remainder, -1) {
		if base, ok := baseCommand(segment); ok {
			add(base)
		}
	}
}

// baseCommand extracts the effective command name from a single pipeline
// segment, or reports false when the segment names no command.
func baseCommand(segment string) (string, bool) {
	inWrapper := false
	for _, token := range strings.Fields(segment) {
		if envAssignment.MatchString(token) {
			continue
		}
		if _, ok := wrapperCommands[strings.ToLower(token)]; ok {
			inWrapper = true
			continue
		}
		// Wrapper flags and their numeric values (e.g. "nice -n 10 cmd")
		// are not the command.
		if inWrapper && (strings.HasPrefix(token, "-") || isNumeric(token)) {
			continue
		}
		token = strings.Trim(token, `"'`)
		if token == "" {
			continue
		}
		return path.Base(token), true
	}
	return "", false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
