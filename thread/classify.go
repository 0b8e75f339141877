package thread

import "github.com/poiesic/pocketkb/core"

// Classification is a message list split by kind, each part in input order.
type Classification struct {
	Roots   []core.Message
	Replies []core.Message
	Others  []core.Message
}

// Classify splits msgs by kind. Messages are not copied deeply.
func Classify(msgs []core.Message) Classification {
	var c Classification
	for _, m := range msgs {
		switch m.Kind {
		case core.MessageKindRoot:
			c.Roots = append(c.Roots, m)
		case core.MessageKindReply:
			c.Replies = append(c.Replies, m)
		default:
			c.Others = append(c.Others, m)
		}
	}
	return c
}

// DedupeMessages collapses messages sharing an id into one. The survivor
// takes the position of the first occurrence and the content of the last.
// Messages with an empty id are dropped.
func DedupeMessages(msgs []core.Message) []core.Message {
	index := make(map[string]int, len(msgs))
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		if i, ok := index[m.ID]; ok {
			out[i] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}
