package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRenderFromStdin(t *testing.T) {
	out, err := runCLI(t, "# Title\n- item", "render")
	require.NoError(t, err)
	assert.Equal(t, "<b>Title</b>\n• item\n", out)
}

func TestRenderSplitsWithSeparator(t *testing.T) {
	out, err := runCLI(t, strings.Repeat("a", 25), "render", "--max-length", "10", "--separator", "|")
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa|aaaaaaaaaa|aaaaa\n", out)
}

func TestRenderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msg.md")
	require.NoError(t, os.WriteFile(path, []byte("**hi**"), 0o644))

	out, err := runCLI(t, "", "render", path)
	require.NoError(t, err)
	assert.Equal(t, "<b>hi</b>\n", out)
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part.md"), []byte("part"), 0o644))
	mainPath := filepath.Join(dir, "main.md")
	require.NoError(t, os.WriteFile(mainPath, []byte("x {{part.md}} y"), 0o644))

	out, err := runCLI(t, "", "include", "--root", dir, mainPath)
	require.NoError(t, err)
	assert.Equal(t, "x part y", out)
}

func TestSendRequiresChatID(t *testing.T) {
	_, err := runCLI(t, "hello", "send")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--chat-id")
}

func TestSendRejectsZeroChatID(t *testing.T) {
	_, err := runCLI(t, "hello", "send", "--chat-id", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --chat-id")
}

func TestRequireChatIDsDedupes(t *testing.T) {
	cmd := newSendCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--chat-id", "5", "--chat-id", "6,5"}))

	ids, err := requireChatIDs(cmd)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, ids)
}

func TestNotificationsListEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "n.db")

	out, err := runCLI(t, "", "--store-path", dbPath, "notifications", "list")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, float64(0), body["unread"])
}
