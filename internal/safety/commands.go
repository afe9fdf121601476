// Package safety is the hard backstop for shell execution. It runs before
// and independently of the policy engine: a command that trips one of
// these checks is refused even when the policy document would allow it.
package safety

import (
	"regexp"
	"strings"
)

// Reason returned on every refusal. The wording matches the policy
// engine's so the caller can surface either uniformly.
const ReasonBlocked = "Command contains blocked operation"

// blockedFragments refuse a command when they appear at the start or as a
// separate word anywhere in it. Matching is case-insensitive.
var blockedFragments = []string{
	"rm -rf /",
	"sudo rm",
	"format",
	"fdisk",
	"mkfs",
	"dd if=/dev/zero",
	":(){ :|:& };:",
	"chmod 000",
	"chown root",
	"passwd",
	"su -",
	"sudo su",
	"reboot",
	"shutdown",
	"halt",
	"poweroff",
	"init 0",
	"init 6",
}

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)>\s*/dev/`),    // redirect into device files
	regexp.MustCompile(`(?i)/dev/sd[a-z]`), // direct disk access
	regexp.MustCompile(`(?i)rm\s+.*-rf`),   // recursive force remove
	regexp.MustCompile(`(?i)\|.*rm`),       // piped into rm
	regexp.MustCompile(`(?i);\s*rm`),       // chained with rm
	regexp.MustCompile(`(?i)&&.*rm`),       // AND-chained with rm
	regexp.MustCompile(`(?i)\$\([^)]*rm`),  // command substitution with rm
}

// Check reports whether the command passes the safety net. The second
// return value is the refusal reason, empty on pass.
func Check(command string) (bool, string) {
	lower := strings.ToLower(command)
	for _, fragment := range blockedFragments {
		if strings.HasPrefix(lower, fragment) || strings.Contains(lower, " "+fragment) {
			return false, ReasonBlocked
		}
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(command) {
			return false, ReasonBlocked
		}
	}
	return true, ""
}

// Sanitize strips control bytes that could smuggle extra commands past the
// shell quoting layer.
func Sanitize(command string) string {
	var b strings.Builder
	b.Grow(len(command))
	for _, r := range command {
		if r == 0 || (r < 0x20 && r != '\n' && r != '\t') {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
