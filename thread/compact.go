package thread

import (
	"strings"

	"github.com/poiesic/pocketkb/core"
)

const separator = "\n\n"

// ThreadMeta is the structured payload stored alongside a compacted thread.
type ThreadMeta struct {
	Children []core.Message `json:"children"`
}

// Compacted is a thread flattened into one embeddable text.
type Compacted struct {
	Content string
	// Meta is nil when the thread has no children.
	Meta *ThreadMeta
}

// Compact joins the root's content and each child's content, in child order,
// separated by a blank line.
func Compact(node *core.ThreadNode) Compacted {
	var b strings.Builder
	b.WriteString(node.Root.Content)
	for _, child := range node.Children {
		b.WriteString(separator)
		b.WriteString(child.Content)
	}

	compacted := Compacted{Content: b.String()}
	if len(node.Children) > 0 {
		compacted.Meta = &ThreadMeta{Children: node.Children}
	}
	return compacted
}
