package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runApp runs the CLI with args and returns everything written to the app writer.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"pocketkb", "--env-file", ""}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const chatExport = `{
  "guild": {"id": "g"},
  "channel": {"id": "c"},
  "messages": [
    {"id": "1", "type": "Default", "content": "how do I deploy?", "timestamp": "2025-01-01T10:00:00Z"},
    {"id": "2", "type": "Reply", "content": "use the CLI", "timestamp": "2025-01-01T10:01:00Z", "reference": {"messageId": "1"}},
    {"id": "3", "type": "Default", "content": "anyone around?", "timestamp": "2025-01-01T11:00:00Z"},
    {"id": "4", "type": "Reply", "content": "lost reply", "timestamp": "2025-01-01T11:05:00Z", "reference": {"messageId": "99"}},
    {"id": "5", "type": "ThreadCreated", "content": "", "timestamp": "2025-01-01T11:06:00Z"}
  ]
}`

const issueExport = `[
  {"id": 10, "title": "Crash on start", "body": "stack trace", "html_url": "https://github.com/o/r/issues/1", "created_at": "2025-01-02T00:00:00Z"},
  {"id": 11, "title": "Docs typo", "body": "fix it", "html_url": "https://github.com/o/r/issues/2", "created_at": "2025-01-03T00:00:00Z"}
]`

// embeddingServer answers OpenAI-style embedding requests with a fixed direction.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
		}{Object: "list", Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, item{Object: "embedding", Embedding: []float32{3, 4}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	_, err := runApp(t, "--log-level", "loud", "threads", "missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".dev.vars", "POCKETKB_TEST_NEW=from-file\nPOCKETKB_TEST_SET=from-file\n")

	t.Setenv("POCKETKB_TEST_SET", "from-env")
	t.Setenv("POCKETKB_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("POCKETKB_TEST_NEW"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("POCKETKB_TEST_NEW"))
	assert.Equal(t, "from-env", os.Getenv("POCKETKB_TEST_SET"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "absent")))
	assert.NoError(t, loadEnvFile(""))
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds([]string{"github", "discord"})
	require.NoError(t, err)
	assert.Equal(t, []core.SourceKind{core.SourceKindGitHub, core.SourceKindDiscord}, kinds)

	kinds, err = parseKinds(nil)
	require.NoError(t, err)
	assert.Empty(t, kinds)

	_, err = parseKinds([]string{"slack"})
	assert.Error(t, err)
}

func TestIngest_MissingAPIKeyLeavesDatabaseUntouched(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	issues := writeFile(t, dir, "issues.json", issueExport)

	_, err := runApp(t, "--db", dbPath, "ingest", "--github", issues)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIngest_RequiresInput(t *testing.T) {
	_, err := runApp(t, "--db", filepath.Join(t.TempDir(), "db"), "ingest", "--api-key", "sk-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to ingest")
}

func TestIngest_InvalidDiscordMode(t *testing.T) {
	dir := t.TempDir()
	chat := writeFile(t, dir, "chat.json", chatExport)

	_, err := runApp(t, "--db", filepath.Join(dir, "db"), "ingest",
		"--api-key", "sk-test", "--discord", chat, "--discord-mode", "pages")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid discord mode")
}

func TestThreadsCommand(t *testing.T) {
	dir := t.TempDir()
	chat := writeFile(t, dir, "chat.json", chatExport)

	out, err := runApp(t, "threads", "--verbose", chat)
	require.NoError(t, err)

	assert.Contains(t, out, "messages:  5\n")
	assert.Contains(t, out, "roots:     2\n")
	assert.Contains(t, out, "replies:   2\n")
	assert.Contains(t, out, "other:     1\n")
	assert.Contains(t, out, "threads:   2\n")
	assert.Contains(t, out, "attached:  1\n")
	assert.Contains(t, out, "childless: 1\n")
	assert.Contains(t, out, "orphans:   1\n")
	assert.Contains(t, out, "childless 3\n")
	assert.Contains(t, out, "orphan 4 -> 99\n")
}

func TestThreadsCommand_RequiresFiles(t *testing.T) {
	_, err := runApp(t, "threads")
	assert.Error(t, err)
}

func TestEndToEnd(t *testing.T) {
	srv := embeddingServer(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	chat := writeFile(t, dir, "chat.json", chatExport)
	issues := writeFile(t, dir, "issues.json", issueExport)

	embedding := []string{"--embedding-host", srv.URL, "--api-key", "sk-test"}

	args := append([]string{"--db", dbPath, "ingest"}, embedding...)
	args = append(args, "--github", issues, "--discord", chat, "--workers", "2")
	out, err := runApp(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "github")
	assert.Contains(t, out, "discord")

	// Ingesting the same issues again stores a second copy of each link
	args = append([]string{"--db", dbPath, "ingest"}, embedding...)
	args = append(args, "--github", issues)
	_, err = runApp(t, args...)
	require.NoError(t, err)

	out, err = runApp(t, "--db", dbPath, "dedupe", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would delete 2 records")

	out, err = runApp(t, "--db", dbPath, "dedupe")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 2 records")

	out, err = runApp(t, "--db", dbPath, "dedupe")
	require.NoError(t, err)
	assert.Contains(t, out, "0 duplicated")

	args = append([]string{"--db", dbPath, "search"}, embedding...)
	args = append(args, "--kind", "github", "crash")
	out, err = runApp(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 hits")
	assert.Contains(t, out, "https://github.com/o/r/issues/1")
	assert.NotContains(t, out, "discord.com")

	args = append([]string{"--db", dbPath, "reembed"}, embedding...)
	args = append(args, "--batch-size", "2")
	_, err = runApp(t, args...)
	require.NoError(t, err)

	out, err = runApp(t, "--db", dbPath, "repair", "source-ids", "--kind", "github", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 2 records")
}

// seedStore writes records straight into the database at dbPath.
func seedStore(t *testing.T, dbPath string, records ...*core.KnowledgeRecord) {
	t.Helper()
	backend, err := badger.OpenBackend(dbPath, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err := badger.NewKnowledgeRepository(backend)
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.AddKnowledgeRecords(context.Background(), records...)
	require.NoError(t, err)
}

func storedRecords(t *testing.T, dbPath, link string) []*core.KnowledgeRecord {
	t.Helper()
	backend, err := badger.OpenBackend(dbPath, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err := badger.NewKnowledgeRepository(backend)
	require.NoError(t, err)
	defer repo.Close()
	records, err := repo.GetKnowledgeRecordsByLink(context.Background(), link)
	require.NoError(t, err)
	return records
}

func storedContent(t *testing.T, dbPath, link string) string {
	t.Helper()
	records := storedRecords(t, dbPath, link)
	require.Len(t, records, 1)
	return records[0].Content
}

func TestRepairContent_DefaultsToDiscord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")
	issueLink := "https://github.com/o/r/issues/7"
	chatLink := "https://discord.com/channels/g/c/1"
	seedStore(t, dbPath,
		&core.KnowledgeRecord{Content: "# Bug\nc.req.param() returns undefined", Link: issueLink, Kind: core.SourceKindGitHub},
		&core.KnowledgeRecord{Content: "discord textundefined", Link: chatLink, Kind: core.SourceKindDiscord},
	)

	out, err := runApp(t, "--db", dbPath, "repair", "content")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 1 records")

	assert.Equal(t, "# Bug\nc.req.param() returns undefined", storedContent(t, dbPath, issueLink))
	assert.Equal(t, "discord text", storedContent(t, dbPath, chatLink))
}

func TestRepairSourceIDs_DefaultsToDiscord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")
	seedStore(t, dbPath,
		&core.KnowledgeRecord{Content: "issue", Link: "https://github.com/o/r/issues/7", Kind: core.SourceKindGitHub},
		&core.KnowledgeRecord{Content: "chat", Link: "https://discord.com/channels/g/c/1", Kind: core.SourceKindDiscord},
	)

	out, err := runApp(t, "--db", dbPath, "repair", "source-ids", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 1 records")
}

func TestDiscordBatchKey(t *testing.T) {
	assert.Equal(t, "discord-threads", discordBatchKey("", "threads"))
	assert.Equal(t, "discord-messages", discordBatchKey("", "messages"))
	assert.Equal(t, "chat-2024", discordBatchKey("chat-2024", "messages"))
}

func TestIngest_DiscordModesTrackedSeparately(t *testing.T) {
	srv := embeddingServer(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	chat := writeFile(t, dir, "chat.json", chatExport)

	ingest := func(mode string) {
		t.Helper()
		out, err := runApp(t, "--db", dbPath, "ingest",
			"--embedding-host", srv.URL, "--api-key", "sk-test",
			"--discord", chat, "--discord-mode", mode, "--remember-batches")
		require.NoError(t, err)
		assert.Contains(t, out, "ok")
	}

	ingest("messages")
	ingest("threads")

	// Both runs stored the root of the first thread
	assert.Len(t, storedRecords(t, dbPath, "https://discord.com/channels/g/c/1"), 2)
}

func TestSearch_RequiresQuery(t *testing.T) {
	_, err := runApp(t, "--db", filepath.Join(t.TempDir(), "db"), "search", "--api-key", "sk-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestReembed_RejectsBadBatchSize(t *testing.T) {
	_, err := runApp(t, "--db", filepath.Join(t.TempDir(), "db"), "reembed",
		"--api-key", "sk-test", "--batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size")
}
