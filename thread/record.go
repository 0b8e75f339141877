package thread

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/export"
)

// Record converts a thread into a discord knowledge record linked to its root.
func Record(node *core.ThreadNode) (*core.KnowledgeRecord, error) {
	compacted := Compact(node)
	root := node.Root

	record := &core.KnowledgeRecord{
		Content:  compacted.Content,
		Link:     export.DiscordLink(root.GuildID, root.ChannelID, root.ID),
		Kind:     core.SourceKindDiscord,
		SourceID: root.ID,
	}
	if compacted.Meta != nil {
		meta, err := json.Marshal(compacted.Meta)
		if err != nil {
			return nil, fmt.Errorf("thread %s: marshal meta: %w", root.ID, err)
		}
		record.Meta = meta
	}
	return record, nil
}

// Records converts every thread in the forest, in Order.
func Records(forest *Forest) ([]*core.KnowledgeRecord, error) {
	records := make([]*core.KnowledgeRecord, 0, len(forest.Order))
	for _, node := range forest.Nodes() {
		record, err := Record(node)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
