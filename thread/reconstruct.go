package thread

import (
	"slices"

	"github.com/poiesic/pocketkb/core"
)

// Forest is the result of thread reconstruction.
type Forest struct {
	// Threads maps root message id to its thread.
	Threads map[string]*core.ThreadNode
	// Order lists root ids in the order they were first seen.
	Order []string
	// Orphans are replies whose reference chain never reaches a known root,
	// in input order.
	Orphans []core.Message
}

// Reconstruct builds threads from msgs, which is the concatenation of one or
// more exports in file order. Messages of kind Other are ignored.
//
// Every reply whose reference resolves to a root is attached to that root,
// followed by every reply reachable from it through further references (the
// reply chase). The chase uses an explicit stack and a visited set, so
// reference cycles terminate. Replies still unattached afterwards are orphans.
func Reconstruct(msgs []core.Message) *Forest {
	forest := &Forest{
		Threads: make(map[string]*core.ThreadNode),
	}

	classified := Classify(msgs)

	// Root index: last write wins, first position kept
	for _, root := range classified.Roots {
		if node, ok := forest.Threads[root.ID]; ok {
			node.Root = root
			continue
		}
		forest.Threads[root.ID] = &core.ThreadNode{Root: root}
		forest.Order = append(forest.Order, root.ID)
	}

	// Replies by the id they reference, preserving input order
	byParent := make(map[string][]int)
	for i, reply := range classified.Replies {
		if parent := reply.ParentID(); parent != "" {
			byParent[parent] = append(byParent[parent], i)
		}
	}

	attached := make(map[string]bool)
	for _, reply := range classified.Replies {
		if attached[reply.ID] {
			continue
		}
		node, ok := forest.Threads[reply.ParentID()]
		if !ok {
			continue
		}
		node.Children = append(node.Children, reply)
		attached[reply.ID] = true
		node.Children = chase(node.Children, reply.ID, classified.Replies, byParent, attached)
	}

	for _, reply := range classified.Replies {
		if !attached[reply.ID] {
			forest.Orphans = append(forest.Orphans, reply)
		}
	}

	for _, node := range forest.Threads {
		sortChildren(node.Children)
	}

	return forest
}

// chase appends every reply transitively referencing start to children,
// depth first, siblings in input order. The visited set is scoped to one
// chase; attached spans the whole reconstruction.
func chase(children []core.Message, start string, replies []core.Message, byParent map[string][]int, attached map[string]bool) []core.Message {
	visited := map[string]bool{start: true}
	stack := pushReversed(nil, byParent[start])

	for len(stack) > 0 {
		reply := replies[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if visited[reply.ID] || attached[reply.ID] {
			continue
		}
		visited[reply.ID] = true
		attached[reply.ID] = true
		children = append(children, reply)

		stack = pushReversed(stack, byParent[reply.ID])
	}
	return children
}

// pushReversed pushes indices so the first one is popped first.
func pushReversed(stack []int, indices []int) []int {
	for i := len(indices) - 1; i >= 0; i-- {
		stack = append(stack, indices[i])
	}
	return stack
}

// sortChildren orders children by timestamp, oldest first. Unparseable
// timestamps go last and keep their relative order.
func sortChildren(children []core.Message) {
	slices.SortStableFunc(children, func(a, b core.Message) int {
		ta, okA := a.ParsedTimestamp()
		tb, okB := b.ParsedTimestamp()
		switch {
		case okA && okB:
			return ta.Compare(tb)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
}

// Nodes returns the threads in Order.
func (f *Forest) Nodes() []*core.ThreadNode {
	nodes := make([]*core.ThreadNode, 0, len(f.Order))
	for _, id := range f.Order {
		nodes = append(nodes, f.Threads[id])
	}
	return nodes
}

// Childless returns the threads without any reply, in Order.
func (f *Forest) Childless() []*core.ThreadNode {
	var nodes []*core.ThreadNode
	for _, id := range f.Order {
		if node := f.Threads[id]; len(node.Children) == 0 {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// ReplyCount returns the number of replies attached across all threads.
func (f *Forest) ReplyCount() int {
	n := 0
	for _, node := range f.Threads {
		n += len(node.Children)
	}
	return n
}
