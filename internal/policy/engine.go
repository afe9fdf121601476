package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	magerr "github.com/mag-gateway/mag/internal/errors"
)

// Refusal reasons surfaced to the user. The wording is part of the contract
// tested by the command flow.
const (
	ReasonBlockedOperation = "Command contains blocked operation"
	ReasonNotAllowed       = "Command not in allowed list"
)

// Engine evaluates paths and commands against the active policy document.
// The document pointer is swapped atomically on reload, so every evaluation
// sees one consistent document.
type Engine struct {
	mu  sync.RWMutex
	doc *Document

	// baseDir anchors relative allowed-directory prefixes. Defaults to the
	// process working directory at construction.
	baseDir string
}

// NewEngine wraps a validated document.
func NewEngine(doc *Document) (*Engine, error) {
	if err := doc.Validate(); err != nil {
		return nil, magerr.Configuration("policy.engine", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, magerr.IO("policy.engine", err)
	}
	return &Engine{doc: doc, baseDir: cwd}, nil
}

// NewEngineAt anchors path evaluation at baseDir instead of the process
// working directory.
func NewEngineAt(doc *Document, baseDir string) (*Engine, error) {
	if err := doc.Validate(); err != nil {
		return nil, magerr.Configuration("policy.engine", err)
	}
	return &Engine{doc: doc, baseDir: filepath.Clean(baseDir)}, nil
}

// Document returns the active document snapshot.
func (e *Engine) Document() *Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Replace swaps in a new document. Invalid documents are rejected and the
// previous one stays active.
func (e *Engine) Replace(doc *Document) error {
	if err := doc.Validate(); err != nil {
		return magerr.Configuration("policy.replace", err)
	}
	e.mu.Lock()
	e.doc = doc
	e.mu.Unlock()
	return nil
}

// Allowed reports whether a tool may perform op on path. Denials carry a
// human-readable reason.
func (e *Engine) Allowed(tool string, op Op, path string) (bool, string) {
	e.mu.RLock()
	doc := e.doc
	base := e.baseDir
	e.mu.RUnlock()

	tp, ok := doc.Tools[tool]
	if !ok {
		return false, fmt.Sprintf("no policy defined for tool '%s'", tool)
	}
	opp, ok := tp.operation(op)
	if !ok {
		return false, fmt.Sprintf("unknown operation '%s'", op)
	}

	if strings.Contains(path, "..") {
		return false, "path contains traversal sequence '..'"
	}

	if tool == ToolFile || tool == ToolCommand {
		if blocked, ext := doc.extensionBlocked(path); blocked {
			return false, fmt.Sprintf("extension '%s' is blocked", ext)
		}
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(base, abs)
	}
	abs = filepath.Clean(abs)
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return false, "path escapes the working directory"
	}

	if len(opp.AllowedDirectories) == 0 {
		return false, fmt.Sprintf("operation '%s' is disabled for tool '%s'", op, tool)
	}

	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return false, "path cannot be resolved"
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}

	for _, dir := range opp.AllowedDirectories {
		if dir == "" {
			return true, ""
		}
		if strings.HasPrefix(rel, dir) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("path '%s' is outside the allowed directories", path)
}

// ConfirmationRequired reports whether the operation needs user approval.
func (e *Engine) ConfirmationRequired(tool string, op Op) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tp, ok := e.doc.Tools[tool]
	if !ok {
		return true
	}
	opp, ok := tp.operation(op)
	if !ok {
		return true
	}
	return opp.ConfirmationRequired
}

// CommandAllowed evaluates a full command line against the command tool's
// create policy. Blocked substrings win over the allowed list.
func (e *Engine) CommandAllowed(command string) (bool, string) {
	e.mu.RLock()
	doc := e.doc
	e.mu.RUnlock()

	tp, ok := doc.Tools[ToolCommand]
	if !ok {
		return false, fmt.Sprintf("no policy defined for tool '%s'", ToolCommand)
	}
	cp := tp.Create

	for _, blocked := range cp.BlockedCommands {
		if blocked != "" && strings.Contains(command, blocked) {
			return false, ReasonBlockedOperation
		}
	}

	if len(cp.AllowedCommands) == 0 {
		return true, ""
	}
	base := baseCommand(command)
	for _, allowed := range cp.AllowedCommands {
		if base == allowed {
			return true, ""
		}
	}
	return false, ReasonNotAllowed
}

// ExtensionBlocked reports whether the path's extension is globally blocked.
func (e *Engine) ExtensionBlocked(path string) (bool, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.extensionBlocked(path)
}

// FileSizeAllowed checks a byte count against the global size ceiling.
func (e *Engine) FileSizeAllowed(sizeBytes int64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sizeBytes <= int64(e.doc.Global.MaxFileSizeMB)*1024*1024
}

// AutoBackup reports whether overwrites should back up the previous file.
func (e *Engine) AutoBackup() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Global.AutoBackup
}

// AllowedDirectories returns the prefix list for a tool operation.
func (e *Engine) AllowedDirectories(tool string, op Op) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tp, ok := e.doc.Tools[tool]
	if !ok {
		return nil
	}
	opp, ok := tp.operation(op)
	if !ok {
		return nil
	}
	out := make([]string, len(opp.AllowedDirectories))
	copy(out, opp.AllowedDirectories)
	return out
}

func (d *Document) extensionBlocked(path string) (bool, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false, ""
	}
	for _, blocked := range d.Global.BlockedExtensions {
		if strings.EqualFold(ext, blocked) {
			return true, ext
		}
	}
	return false, ""
}

// baseCommand extracts the first whitespace-delimited token.
func baseCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
