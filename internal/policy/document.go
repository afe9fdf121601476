// Package policy implements the declarative policy document and the engine
// that evaluates file paths and shell commands against it.
package policy

import (
	"fmt"
	"strings"
)

// Tool names recognized by the policy document.
const (
	ToolFile    = "file-tool"
	ToolTodo    = "todo-tool"
	ToolCommand = "command-tool"
)

// Op is a CRUD operation on a tool.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// OperationPolicy scopes one CRUD operation of one tool.
type OperationPolicy struct {
	// AllowedDirectories are path prefixes, each empty (any path) or ending
	// with "/". An empty list disables the operation outright.
	AllowedDirectories   []string `json:"allowed_directories"`
	ConfirmationRequired bool     `json:"confirmation_required"`

	// Command lists apply to the command tool's create policy only.
	AllowedCommands []string `json:"allowed_commands,omitempty"`
	BlockedCommands []string `json:"blocked_commands,omitempty"`
}

// ToolPolicy holds the four CRUD sub-policies of one tool.
type ToolPolicy struct {
	Create OperationPolicy `json:"create"`
	Read   OperationPolicy `json:"read"`
	Update OperationPolicy `json:"update"`
	Delete OperationPolicy `json:"delete"`
}

// GlobalPolicy is the tool-independent section of the document.
type GlobalPolicy struct {
	BlockedExtensions []string `json:"blocked_extensions"`
	MaxFileSizeMB     int      `json:"max_file_size_mb"`
	AutoBackup        bool     `json:"auto_backup"`
}

// Document is the versioned policy document. Immutable once loaded;
// replacement through Engine.Replace is atomic.
type Document struct {
	Version string                `json:"version"`
	Global  GlobalPolicy          `json:"global"`
	Tools   map[string]ToolPolicy `json:"tools"`
}

// Default returns the document written on first use.
func Default() *Document {
	return &Document{
		Version: "1.0",
		Global: GlobalPolicy{
			BlockedExtensions: []string{".key", ".pem", ".env", ".secret", ".crt"},
			MaxFileSizeMB:     10,
			AutoBackup:        false,
		},
		Tools: map[string]ToolPolicy{
			ToolFile: {
				Create: OperationPolicy{AllowedDirectories: []string{"src/", "tests/", "docs/"}, ConfirmationRequired: true},
				Read:   OperationPolicy{AllowedDirectories: []string{"src/", "tests/", "docs/"}},
				Update: OperationPolicy{AllowedDirectories: []string{"src/", "tests/"}, ConfirmationRequired: true},
				Delete: OperationPolicy{ConfirmationRequired: true}, // empty = disabled
			},
			ToolTodo: {
				Delete: OperationPolicy{ConfirmationRequired: true},
			},
			ToolCommand: {
				Create: OperationPolicy{
					ConfirmationRequired: true,
					AllowedCommands: []string{
						"make", "cmake", "gcc", "g++", "go", "npm", "cargo",
						"python", "python3", "pip", "ls", "pwd", "find", "grep",
						"cat", "head", "tail", "wc", "sort", "uniq", "awk",
						"sed", "git", "echo", "cd",
					},
					BlockedCommands: []string{
						"rm", "rmdir", "dd", "mkfs", "format", "fdisk", "mount",
						"umount", "chmod 777", "chown", "su", "sudo", "passwd",
						"systemctl", "shutdown", "reboot", "kill -9", "curl",
						"wget", "nc",
					},
				},
				Read:   OperationPolicy{},
				Update: OperationPolicy{ConfirmationRequired: true},
				Delete: OperationPolicy{ConfirmationRequired: true},
			},
		},
	}
}

// operations iterates the named CRUD sub-policies of a tool.
func (t ToolPolicy) operations() []struct {
	Name   Op
	Policy OperationPolicy
} {
	return []struct {
		Name   Op
		Policy OperationPolicy
	}{
		{OpCreate, t.Create},
		{OpRead, t.Read},
		{OpUpdate, t.Update},
		{OpDelete, t.Delete},
	}
}

// operation returns the sub-policy for op, or false when the tool has no
// such operation.
func (t ToolPolicy) operation(op Op) (OperationPolicy, bool) {
	switch op {
	case OpCreate:
		return t.Create, true
	case OpRead:
		return t.Read, true
	case OpUpdate:
		return t.Update, true
	case OpDelete:
		return t.Delete, true
	}
	return OperationPolicy{}, false
}

// Validate checks every document invariant. A document that fails
// validation must be rejected on load; there is no implicit repair.
func (d *Document) Validate() error {
	if d.Version == "" {
		return fmt.Errorf("missing 'version' field")
	}
	for _, ext := range d.Global.BlockedExtensions {
		if ext == "" {
			return fmt.Errorf("empty extension in global.blocked_extensions")
		}
		if ext[0] != '.' {
			return fmt.Errorf("extension %q must start with '.' in global.blocked_extensions", ext)
		}
	}
	if d.Global.MaxFileSizeMB < 1 || d.Global.MaxFileSizeMB > 1000 {
		return fmt.Errorf("global.max_file_size_mb must be between 1 and 1000, got %d", d.Global.MaxFileSizeMB)
	}
	for name, tool := range d.Tools {
		if name == "" {
			return fmt.Errorf("empty tool name in tools")
		}
		for _, op := range tool.operations() {
			for _, dir := range op.Policy.AllowedDirectories {
				if dir == "" {
					continue // empty string means "any directory"
				}
				if !strings.HasSuffix(dir, "/") {
					return fmt.Errorf("directory %q in %s.%s must end with '/'", dir, name, op.Name)
				}
				if strings.Contains(dir, "..") {
					return fmt.Errorf("directory %q in %s.%s contains path traversal sequence '..'", dir, name, op.Name)
				}
			}
		}
	}
	return nil
}
