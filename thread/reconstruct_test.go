package thread

import (
	"fmt"
	"testing"

	"github.com/poiesic/pocketkb/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func root(id, content, ts string) core.Message {
	return core.Message{
		ID: id, Kind: core.MessageKindRoot, Type: core.RawTypeDefault,
		Content: content, Timestamp: ts, GuildID: "g", ChannelID: "c",
	}
}

func reply(id, parent, content, ts string) core.Message {
	msg := core.Message{
		ID: id, Kind: core.MessageKindReply, Type: core.RawTypeReply,
		Content: content, Timestamp: ts, GuildID: "g", ChannelID: "c",
	}
	if parent != "" {
		msg.Reference = &core.MessageReference{MessageID: parent}
	}
	return msg
}

func other(id string) core.Message {
	return core.Message{ID: id, Kind: core.MessageKindOther, Type: "ThreadCreated"}
}

func ids(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func ts(minute int) string {
	return fmt.Sprintf("2024-04-01T10:%02d:00.000+00:00", minute)
}

func TestClassify(t *testing.T) {
	c := Classify([]core.Message{root("1", "", ""), reply("2", "1", "", ""), other("3"), root("4", "", "")})

	assert.Equal(t, []string{"1", "4"}, ids(c.Roots))
	assert.Equal(t, []string{"2"}, ids(c.Replies))
	assert.Equal(t, []string{"3"}, ids(c.Others))
}

func TestReconstruct_DirectReplies(t *testing.T) {
	forest := Reconstruct([]core.Message{
		root("R", "root", ts(0)),
		reply("B", "R", "second", ts(2)),
		reply("A", "R", "first", ts(1)),
		other("X"),
	})

	require.Len(t, forest.Threads, 1)
	assert.Equal(t, []string{"R"}, forest.Order)
	assert.Equal(t, []string{"A", "B"}, ids(forest.Threads["R"].Children))
	assert.Empty(t, forest.Orphans)
}

func TestReconstruct_ChainFlattensInOrder(t *testing.T) {
	// R <- A <- B <- C, fed out of order
	forest := Reconstruct([]core.Message{
		reply("C", "B", "c", ts(3)),
		root("R", "r", ts(0)),
		reply("B", "A", "b", ts(2)),
		reply("A", "R", "a", ts(1)),
	})

	node := forest.Threads["R"]
	require.NotNil(t, node)
	assert.Equal(t, []string{"A", "B", "C"}, ids(node.Children))
	assert.Empty(t, forest.Orphans)

	assert.Equal(t, "r\n\na\n\nb\n\nc", Compact(node).Content)
}

func TestReconstruct_Orphans(t *testing.T) {
	forest := Reconstruct([]core.Message{
		root("R", "r", ts(0)),
		reply("A", "missing", "a", ts(1)),
		reply("B", "", "no reference", ts(2)),
		reply("C", "A", "reply to orphan", ts(3)),
		reply("D", "R", "attached", ts(4)),
	})

	assert.Equal(t, []string{"A", "B", "C"}, ids(forest.Orphans))
	assert.Equal(t, []string{"D"}, ids(forest.Threads["R"].Children))

	// no orphan shows up in any thread
	for _, node := range forest.Threads {
		for _, child := range node.Children {
			assert.NotContains(t, ids(forest.Orphans), child.ID)
		}
	}
}

func TestReconstruct_ReferenceCycleTerminates(t *testing.T) {
	forest := Reconstruct([]core.Message{
		reply("A", "B", "a", ts(1)),
		reply("B", "A", "b", ts(2)),
	})

	assert.Empty(t, forest.Threads)
	assert.Equal(t, []string{"A", "B"}, ids(forest.Orphans))
}

func TestReconstruct_ChainInputReversed(t *testing.T) {
	// R <- A <- C <- B <- D, with B and D seen before their parents
	forest := Reconstruct([]core.Message{
		root("R", "r", ts(0)),
		reply("A", "R", "a", ts(1)),
		reply("B", "C", "b", ts(2)),
		reply("C", "A", "c", ts(3)),
		reply("D", "B", "d", ts(4)),
	})

	assert.Equal(t, []string{"A", "B", "C", "D"}, ids(forest.Threads["R"].Children))
	assert.Empty(t, forest.Orphans)
}

func TestReconstruct_SelfReference(t *testing.T) {
	forest := Reconstruct([]core.Message{reply("A", "A", "a", ts(1))})
	assert.Equal(t, []string{"A"}, ids(forest.Orphans))
}

func TestReconstruct_DeepChain(t *testing.T) {
	const depth = 10000
	msgs := []core.Message{root("R", "r", "")}
	parent := "R"
	for i := 0; i < depth; i++ {
		id := fmt.Sprintf("m%d", i)
		msgs = append(msgs, reply(id, parent, id, ""))
		parent = id
	}

	forest := Reconstruct(msgs)
	children := forest.Threads["R"].Children
	require.Len(t, children, depth)
	assert.Equal(t, "m0", children[0].ID)
	assert.Equal(t, fmt.Sprintf("m%d", depth-1), children[depth-1].ID)
}

func TestReconstruct_DuplicateRootAcrossBatches(t *testing.T) {
	batch1 := []core.Message{root("R1", "old", ts(0)), root("R2", "two", ts(0))}
	batch2 := []core.Message{root("R1", "new", ts(0)), reply("A", "R1", "a", ts(1))}

	forest := Reconstruct(append(batch1, batch2...))

	require.Len(t, forest.Threads, 2)
	assert.Equal(t, []string{"R1", "R2"}, forest.Order)
	assert.Equal(t, "new", forest.Threads["R1"].Root.Content)
	assert.Equal(t, []string{"A"}, ids(forest.Threads["R1"].Children))
}

func TestReconstruct_DuplicateReplyAttachedOnce(t *testing.T) {
	forest := Reconstruct([]core.Message{
		root("R", "r", ts(0)),
		reply("A", "R", "a", ts(1)),
		reply("A", "R", "a", ts(1)),
	})

	assert.Equal(t, []string{"A"}, ids(forest.Threads["R"].Children))
	assert.Empty(t, forest.Orphans)
}

func TestReconstruct_UnparseableTimestampsSortLast(t *testing.T) {
	forest := Reconstruct([]core.Message{
		root("R", "r", ts(0)),
		reply("bad1", "R", "", "garbage"),
		reply("late", "R", "", ts(9)),
		reply("bad2", "R", "", ""),
		reply("early", "R", "", ts(1)),
	})

	assert.Equal(t, []string{"early", "late", "bad1", "bad2"}, ids(forest.Threads["R"].Children))
}

func TestReconstruct_ChildlessRootsHaveNilChildren(t *testing.T) {
	forest := Reconstruct([]core.Message{root("R", "r", ts(0)), root("S", "s", ts(1)), reply("A", "S", "a", ts(2))})

	assert.Nil(t, forest.Threads["R"].Children)

	childless := forest.Childless()
	require.Len(t, childless, 1)
	assert.Equal(t, "R", childless[0].Root.ID)

	nodes := forest.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "S", nodes[1].Root.ID)
	assert.Equal(t, 1, forest.ReplyCount())
}

func TestReconstruct_Deterministic(t *testing.T) {
	msgs := []core.Message{
		root("R", "r", ts(0)),
		reply("A", "R", "a", ts(1)),
		reply("B", "A", "b", "x"),
		reply("C", "A", "c", "y"),
		reply("O", "zzz", "o", ts(2)),
	}

	first := Reconstruct(msgs)
	for i := 0; i < 10; i++ {
		again := Reconstruct(msgs)
		assert.Equal(t, first.Order, again.Order)
		assert.Equal(t, ids(first.Threads["R"].Children), ids(again.Threads["R"].Children))
		assert.Equal(t, ids(first.Orphans), ids(again.Orphans))
	}
}

func TestDedupeMessages(t *testing.T) {
	msgs := DedupeMessages([]core.Message{
		root("1", "old", ""),
		root("2", "two", ""),
		root("1", "new", ""),
		{ID: ""},
	})

	assert.Equal(t, []string{"1", "2"}, ids(msgs))
	assert.Equal(t, "new", msgs[0].Content)
}
