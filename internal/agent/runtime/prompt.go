package runtime

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/todoagent/internal/todos"
)

// SystemPrompt is the base instruction set for the todo agent. The rendered
// todo context is appended below it at runtime initialization.
const SystemPrompt = `You are a helpful Todo Assistant agent. You help users query and understand their todo items.

You have been provided with a list of todos from the upstream todo API. Use this data to answer user questions.

You also have a tool to fetch specific todo details by ID:
- Use the get_todo_by_id tool when a user asks for a specific todo (e.g., "get todo 5", "show me todo #42")

When users ask about todos, tasks, or to-do items:
1. For specific todo requests by ID, use the get_todo_by_id tool
2. For general queries, reference the provided todo data
3. You can filter, search, and summarize the todos
4. Each todo has: id, userId, title, and completed status (✓ = completed, ○ = not completed)

Provide clear, formatted responses. Be helpful, concise, and proactive in suggesting insights about the todos.`

// FormatTodos renders a bounded subset of todos as a text block for inclusion
// in the system prompt. Output is deterministic: entries appear in fetch
// order, truncated to limit. An empty list yields a fixed sentinel line.
func FormatTodos(items []todos.Item, limit int) string {
	if len(items) == 0 {
		return "No todos available."
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	subset := items[:limit]

	var b strings.Builder
	fmt.Fprintf(&b, "Available Todos (%d of %d shown):\n", len(subset), len(items))
	b.WriteString(strings.Repeat("-", 50))
	for _, item := range subset {
		status := "○"
		if item.Completed {
			status = "✓"
		}
		fmt.Fprintf(&b, "\n%s [ID:%d] (User %d) %s", status, item.ID, item.UserID, item.Title)
	}
	return b.String()
}
