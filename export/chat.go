package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/pocketkb/core"
)

const discordChannelsURL = "https://discord.com/channels"

// ChatExport is one exported chat channel.
type ChatExport struct {
	GuildID   string
	ChannelID string

	messages []chatMessage
}

// chatExportFile is the on-disk shape of a chat export.
type chatExportFile struct {
	Guild    exportRef     `json:"guild"`
	Channel  exportRef     `json:"channel"`
	Messages []chatMessage `json:"messages"`
}

type exportRef struct {
	ID string `json:"id"`
}

type chatMessage struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Content   string                 `json:"content"`
	Timestamp string                 `json:"timestamp"`
	Reference *core.MessageReference `json:"reference,omitempty"`
}

// LoadChatExport decodes a chat export.
func LoadChatExport(r io.Reader) (*ChatExport, error) {
	var file chatExportFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedExport, err)
	}
	return &ChatExport{
		GuildID:   file.Guild.ID,
		ChannelID: file.Channel.ID,
		messages:  file.Messages,
	}, nil
}

// LoadChatExportFile decodes the chat export stored at path.
func LoadChatExportFile(path string) (*ChatExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	export, err := LoadChatExport(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return export, nil
}

// Messages returns the export's messages in file order, classified and
// tagged with the export's guild and channel.
func (e *ChatExport) Messages() []core.Message {
	msgs := make([]core.Message, 0, len(e.messages))
	for _, m := range e.messages {
		msgs = append(msgs, core.Message{
			ID:        m.ID,
			Kind:      core.ParseMessageKind(m.Type),
			Type:      m.Type,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Reference: m.Reference,
			GuildID:   e.GuildID,
			ChannelID: e.ChannelID,
		})
	}
	return msgs
}

// LoadChatExportFiles loads every file and concatenates their messages in
// argument order. No cross-file sorting is applied.
func LoadChatExportFiles(paths ...string) ([]core.Message, error) {
	var msgs []core.Message
	for _, path := range paths {
		export, err := LoadChatExportFile(path)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, export.Messages()...)
	}
	return msgs, nil
}

// DiscordLink builds the canonical URL of a message.
func DiscordLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", discordChannelsURL, guildID, channelID, messageID)
}

// MessageRecords converts every root message into a standalone discord record,
// ignoring replies and thread structure.
func MessageRecords(msgs []core.Message) []*core.KnowledgeRecord {
	var records []*core.KnowledgeRecord
	for _, m := range msgs {
		if m.Kind != core.MessageKindRoot {
			continue
		}
		records = append(records, &core.KnowledgeRecord{
			Content:  m.Content,
			Link:     DiscordLink(m.GuildID, m.ChannelID, m.ID),
			Kind:     core.SourceKindDiscord,
			SourceID: m.ID,
		})
	}
	return records
}
