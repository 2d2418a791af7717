package safety

import "regexp"

// hardBlockRule pairs a compiled pattern with the reason reported when it
// matches. The table is checked before any mode or user configuration and
// cannot be disabled.
type hardBlockRule struct {
	pattern *regexp.Regexp
	reason  string
}

// hardBlockRules are command patterns that are refused in every mode.
// Keep this table declarative: one rule per destructive class, so each
// entry can be tested in isolation.
var hardBlockRules = []hardBlockRule{
	{
		pattern: regexp.MustCompile(`\brm\s+(?:-{1,2}[^\s]+\s+)*(?:/|/\*)(?:\s|$)`),
		reason:  "rm targeting the filesystem root",
	},
	{
		pattern: regexp.MustCompile(`\bmkfs(?:\.[a-z0-9]+)?\b`),
		reason:  "filesystem format command",
	},
	{
		pattern: regexp.MustCompile(`\bdd\b[^|;&]*\bof=/dev/(?:sd[a-z]|hd[a-z]|nvme\d|disk\d|vd[a-z])`),
		reason:  "raw write to a disk device",
	},
	{
		pattern: regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
		reason:  "fork bomb",
	},
	{
		pattern: regexp.MustCompile(`\bchmod\s+(?:-[a-zA-Z]+\s+)*0?777\s+/(?:\s|$)`),
		reason:  "world-writable permissions on the filesystem root",
	},
	{
		pattern: regexp.MustCompile(`\b(?:shutdown|reboot|halt|poweroff)\b`),
		reason:  "power control command",
	},
	{
		pattern: regexp.MustCompile(`\bkill\s+(?:-\S+\s+)*1(?:\s|$)`),
		reason:  "killing PID 1",
	},
	{
		pattern: regexp.MustCompile(`\bpkill\s+(?:-\S+\s+)*(?:init|systemd)\b`),
		reason:  "killing init/systemd",
	},
	{
		pattern: regexp.MustCompile(`\b(?:curl|wget)\b[^|;&]*\|\s*(?:sudo\s+)?(?:ba|z|da)?sh\b`),
		reason:  "piping a remote download into a shell",
	},
	{
		pattern: regexp.MustCompile(`\b(?:curl|wget)\b[^|;&]*\|\s*(?:sudo\s+)?python3?\b`),
		reason:  "piping a remote download into an interpreter",
	},
}

// allowedCommandGroups is the allow-mode base-command allowlist, grouped so
// additions stay reviewable. Extended at runtime by user configuration.
var allowedCommandGroups = map[string][]string{
	"version_control": {
		"git", "gh", "hg", "svn",
	},
	"inspection": {
		"ls", "cat", "head", "tail", "less", "more", "file", "stat",
		"pwd", "echo", "printf", "basename", "dirname", "realpath",
		"readlink", "tree", "wc", "md5sum", "sha256sum",
	},
	"text_processing": {
		"grep", "egrep", "fgrep", "rg", "ag", "find", "fd", "awk", "sed",
		"sort", "uniq", "cut", "tr", "diff", "comm", "paste", "jq", "yq",
		"xargs", "tee", "column",
	},
	"build_dev": {
		"make", "cmake", "go", "gofmt", "cargo", "rustc", "npm", "npx",
		"yarn", "pnpm", "node", "python", "python3", "pip", "pip3",
		"ruby", "gem", "bundle", "java", "javac", "mvn", "gradle",
		"gcc", "g++", "clang", "ld", "ar", "pytest", "tox",
	},
	"process_inspection": {
		"ps", "top", "htop", "pgrep", "lsof", "uptime", "free", "df",
		"du", "env", "printenv", "which", "whereis", "type", "uname",
		"id", "whoami", "groups", "date", "cal", "history",
	},
	"containers": {
		"docker", "podman", "kubectl", "helm", "docker-compose",
	},
	"network_read": {
		"curl", "wget", "ping", "dig", "nslookup", "host", "netstat",
		"ss", "traceroute", "whois",
	},
	"file_manipulation": {
		"mkdir", "rmdir", "cp", "mv", "touch", "ln", "chmod", "chown",
		"tar", "gzip", "gunzip", "zip", "unzip", "xz", "zstd", "rsync",
		"patch", "install",
	},
}

// allowedCommands is the flattened allowlist, built once at init.
var allowedCommands = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, group := range allowedCommandGroups {
		for _, cmd := range group {
			set[cmd] = struct{}{}
		}
	}
	return set
}()

// wrapperCommands are prefixes that defer to the command that follows them.
// Base-command extraction skips these (and their leading flags) to find the
// command that actually runs.
var wrapperCommands = map[string]struct{}{
	"sudo":    {},
	"doas":    {},
	"nohup":   {},
	"nice":    {},
	"ionice":  {},
	"strace":  {},
	"ltrace":  {},
	"time":    {},
	"command": {},
	"builtin": {},
	"exec":    {},
	"env":     {},
	"stdbuf":  {},
	"setsid":  {},
}

// sensitivePathPatterns is the fixed catalog of sensitive-file patterns,
// matched against resolved absolute paths. Extended at runtime by user
// configuration.
var sensitivePathPatterns = []*regexp.Regexp{
	// Dotenv files: .env, .env.local, .env.production, ...
	regexp.MustCompile(`(?:^|/)\.env(?:\.[^/]+)?$`),
	// SSH private keys and client config.
	regexp.MustCompile(`(?:^|/)id_(?:rsa|dsa|ecdsa|ed25519)$`),
	regexp.MustCompile(`(?:^|/)\.ssh/(?:config|id_[^/]+|authorized_keys)$`),
	// TLS/SSH certificates and keystores.
	regexp.MustCompile(`\.(?:pem|key|p12|pfx|jks|keystore)$`),
	// Package-manager credential files.
	regexp.MustCompile(`(?:^|/)\.(?:npmrc|pypirc|netrc|gem/credentials)$`),
	regexp.MustCompile(`(?:^|/)\.cargo/credentials(?:\.toml)?$`),
	// Cloud and CI credentials.
	regexp.MustCompile(`(?:^|/)\.aws/credentials$`),
	regexp.MustCompile(`(?:^|/)\.config/gcloud/[^/]*credentials[^/]*$`),
	regexp.MustCompile(`(?:^|/)\.azure/[^/]+\.json$`),
	regexp.MustCompile(`(?:^|/)\.kube/config$`),
	regexp.MustCompile(`(?:^|/)\.docker/config\.json$`),
	regexp.MustCompile(`(?:^|/)\.git-credentials$`),
	// OAuth, token, and secrets files.
	regexp.MustCompile(`(?i)(?:^|/)(?:secrets?|credentials?)\.(?:json|ya?ml|toml)$`),
	regexp.MustCompile(`(?i)(?:^|/)[^/]*(?:token|oauth)[^/]*\.json$`),
}
