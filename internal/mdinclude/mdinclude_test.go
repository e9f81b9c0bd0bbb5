package mdinclude

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestRenderer(t *testing.T) (*Renderer, string, *observer.ObservedLogs) {
	t.Helper()
	root := t.TempDir()
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(root, zap.New(core))
	r.Now = func() time.Time {
		return time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("CET", 3600))
	}
	return r, root, logs
}

func TestRenderPlainFile(t *testing.T) {
	r, root, _ := newTestRenderer(t)
	path := writeFile(t, root, "a.md", "# Hello\n")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n", out)
}

func TestRenderMissingFile(t *testing.T) {
	r, root, _ := newTestRenderer(t)

	out, err := r.Render(filepath.Join(root, "nope.md"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderNestedIncludes(t *testing.T) {
	r, root, _ := newTestRenderer(t)
	writeFile(t, root, "parts/footer.md", "-- footer")
	writeFile(t, root, "parts/body.md", "body\n{{parts/footer.md}}")
	path := writeFile(t, root, "main.md", "top\n{{parts/body.md}}\nend")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "top\nbody\n-- footer\nend", out)
}

func TestRenderIncludeRelativeToRoot(t *testing.T) {
	r, root, _ := newTestRenderer(t)
	writeFile(t, root, "shared.md", "shared")
	// 子目录中的引用仍按 root 解析
	path := writeFile(t, root, "docs/page.md", "{{shared.md}}")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "shared", out)
}

func TestRenderMissingIncludeKeptLiteral(t *testing.T) {
	r, root, _ := newTestRenderer(t)
	path := writeFile(t, root, "main.md", "a {{missing.md}} b")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "a {{missing.md}} b", out)
}

func TestRenderNonMarkdownBracesUntouched(t *testing.T) {
	r, root, _ := newTestRenderer(t)
	path := writeFile(t, root, "main.md", "{{name}} and {{notes.txt}}")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "{{name}} and {{notes.txt}}", out)
}

func TestRenderCircularInclude(t *testing.T) {
	r, root, logs := newTestRenderer(t)
	writeFile(t, root, "a.md", "A[{{b.md}}]")
	writeFile(t, root, "b.md", "B[{{a.md}}]")

	out, err := r.Render(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "A[B[]]", out)

	entries := logs.FilterMessage("circular include detected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.md -> b.md -> a.md", entries[0].ContextMap()["chain"])
}

func TestRenderSelfInclude(t *testing.T) {
	r, root, logs := newTestRenderer(t)
	path := writeFile(t, root, "self.md", "x{{self.md}}y")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "xy", out)
	assert.Equal(t, 1, logs.Len())
}

func TestRenderSameIncludeTwiceIsNotCircular(t *testing.T) {
	r, root, logs := newTestRenderer(t)
	writeFile(t, root, "sig.md", "sig")
	path := writeFile(t, root, "main.md", "{{sig.md}} / {{sig.md}}")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "sig / sig", out)
	assert.Zero(t, logs.Len())
}

func TestRenderDatetime(t *testing.T) {
	r, root, _ := newTestRenderer(t)
	writeFile(t, root, "inc.md", "inc {{DateTime}}")
	path := writeFile(t, root, "main.md", "now {{datetime}}; {{inc.md}}")

	out, err := r.Render(path)
	require.NoError(t, err)
	assert.Equal(t, "now 2026-03-04T04:06:07.890Z; inc 2026-03-04T04:06:07.890Z", out)
}

func TestRenderDefaultsToWorkingDirectoryRoot(t *testing.T) {
	r := &Renderer{}
	out, err := r.Render(filepath.Join(t.TempDir(), "missing.md"))
	require.NoError(t, err)
	assert.Empty(t, out)
}
