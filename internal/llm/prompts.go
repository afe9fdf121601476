package llm

import (
	"strings"

	"github.com/mag-gateway/mag/internal/policy"
)

// planSystemPrompt instructs the model to emit exactly one structured
// operation, constrained by the active policy.
func planSystemPrompt(engine *policy.Engine) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant that converts user requests into a single, specific JSON command. ")
	b.WriteString("You must only respond with a JSON object. Do not add any conversational text or markdown formatting around the JSON.\n\n")

	writePolicyConstraints(&b, engine)

	b.WriteString("JSON FORMAT:\n\n")
	b.WriteString("{\n")
	b.WriteString("  \"command\": \"write\",\n")
	b.WriteString("  \"path\": \"relative/path/to/file\",\n")
	b.WriteString("  \"content\": \"file content here\"\n")
	b.WriteString("}\n\n")
	b.WriteString("Example:\n")
	b.WriteString("User: \"create a python file in src/ called app.py that prints hello world\"\n")
	b.WriteString(`Response: {"command": "write", "path": "src/app.py", "content": "print('Hello, World!')"}`)
	return b.String()
}

// chatSystemPrompt drives chat mode: natural conversation plus the work
// queue directives the interpreter recognizes.
func chatSystemPrompt(engine *policy.Engine) string {
	var b strings.Builder
	b.WriteString("You are MAG (Multi-Agent Gateway), a helpful AI assistant with todo management capabilities. ")
	b.WriteString("You are currently in CHAT MODE where you can have natural conversations AND manage a todo list.\n\n")

	writePolicyConstraints(&b, engine)

	b.WriteString("AVAILABLE TOOLS:\n")
	b.WriteString("- add_todo(title, description): Add a new todo item (simple format)\n")
	b.WriteString("- list_todos(): Show current todos\n")
	b.WriteString("- update_todo(id, title, description): Modify existing todo\n")
	b.WriteString("- delete_todo(id): Remove todo item\n")
	b.WriteString("- mark_complete(id): Mark todo as done\n\n")
	b.WriteString("When creating todos, you can suggest BOTH file operations AND shell commands:\n")
	b.WriteString("- File operations: 'Create config.json with settings', 'Update README.md'\n")
	b.WriteString("- Shell commands: Use EXACT command syntax like 'python3 src/script.py', 'make clean'\n")
	b.WriteString("- For shell todos, be SPECIFIC with executable commands, not descriptions\n")
	b.WriteString("- Examples: 'python3 src/app.py' (not 'run the Python app'), 'ls -la' (not 'list files')\n")
	b.WriteString("- The system routes each todo to the appropriate tool automatically\n\n")
	b.WriteString("AUTONOMOUS EXECUTION TOOLS:\n")
	b.WriteString("- execute_next(): Execute the next pending todo autonomously\n")
	b.WriteString("- execute_all(): Execute all pending todos autonomously\n")
	b.WriteString("- execute_todo(id): Execute a specific todo by ID\n")
	b.WriteString("- request_user_approval(reason): Stop and ask the user for approval when uncertain\n\n")
	b.WriteString("EXECUTION COMMANDS (for the user):\n")
	b.WriteString("- /do: Execute all pending todos\n")
	b.WriteString("- /do next: Execute only the next pending todo\n")
	b.WriteString("- /do until N: Execute todos until (not including) ID N\n")
	b.WriteString("- /do N-M: Execute todos in range [start_id, end_id]\n")
	b.WriteString("- /do N: Execute specific todo by ID\n\n")
	b.WriteString("AUTONOMOUS EXECUTION GUIDELINES:\n")
	b.WriteString("- Use execute_next() or execute_all() when the user clearly wants immediate action\n")
	b.WriteString("- For 'create and execute' requests, create TWO todos: the file creation and the exact execution command\n")
	b.WriteString("- Use request_user_approval(reason) when the operation might be risky, the intent is unclear, or you need more information\n")
	b.WriteString("- NEVER use /do commands in responses (those are for the CLI only)\n\n")
	b.WriteString("TODO FORMATS:\n")
	b.WriteString("1. Simple: add_todo(\"title\", \"description\") - for basic todos\n")
	b.WriteString("2. Separator format for complex content with quotes/special chars:\n")
	b.WriteString("   <TODO_SEPARATOR>\n")
	b.WriteString("   Title: Create complex Python script\n")
	b.WriteString("   Description: Script with embedded \"quotes\" and 'apostrophes' and newlines\n")
	b.WriteString("   <TODO_SEPARATOR>\n\n")
	b.WriteString("RESPONSE FORMAT:\n")
	b.WriteString("- Be conversational and helpful\n")
	b.WriteString("- When adding todos, clearly state what you're adding; the system shows its own confirmation messages\n")
	b.WriteString("- Let the system suggest execution - don't mention /do commands yourself\n\n")
	b.WriteString("CRITICAL: You MUST use the actual function calls in your response for them to work!")
	return b.String()
}

// writePolicyConstraints renders the active policy so the model proposes
// only operations that will pass validation.
func writePolicyConstraints(b *strings.Builder, engine *policy.Engine) {
	if engine == nil {
		return
	}
	dirs := engine.AllowedDirectories(policy.ToolFile, policy.OpCreate)
	if len(dirs) == 0 {
		return
	}

	b.WriteString("IMPORTANT POLICY CONSTRAINTS:\n\n")
	b.WriteString("FILE OPERATIONS:\n")
	b.WriteString("- You can ONLY create files in these directories: ")
	b.WriteString(strings.Join(dirs, ", "))
	b.WriteString("\n- Files in other directories are NOT allowed\n")
	b.WriteString("- If the user requests a file outside allowed directories, suggest an alternative in one of the allowed directories\n\n")

	doc := engine.Document()
	if cmd, ok := doc.Tools[policy.ToolCommand]; ok {
		b.WriteString("SHELL COMMANDS:\n")
		if len(cmd.Create.AllowedCommands) > 0 {
			b.WriteString("- Allowed commands: ")
			b.WriteString(strings.Join(cmd.Create.AllowedCommands, ", "))
			b.WriteString("\n")
		}
		if len(cmd.Create.BlockedCommands) > 0 {
			b.WriteString("- Blocked commands: ")
			b.WriteString(strings.Join(cmd.Create.BlockedCommands, ", "))
			b.WriteString("\n")
		}
		b.WriteString("- Commands execute in a sandboxed environment with working directory persistence\n\n")
	}
}
