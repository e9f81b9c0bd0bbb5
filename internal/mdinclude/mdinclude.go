// Package mdinclude renders markdown templates that pull in other files.
//
// A template may contain {{relative/path.md}}, replaced by that file's own
// rendering, and {{datetime}}, replaced by the current UTC time.
package mdinclude

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	includeRe  = regexp.MustCompile(`\{\{([^}]+\.md)\}\}`)
	variableRe = regexp.MustCompile(`(?i)\{\{(datetime)\}\}`)
)

// 与 JavaScript Date.toISOString 相同的格式
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Renderer resolves includes relative to Root.
type Renderer struct {
	Root   string
	Now    func() time.Time
	Logger *zap.Logger
}

// New returns a Renderer rooted at root.
func New(root string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{Root: root, Now: time.Now, Logger: logger}
}

// Render returns the rendered content of path. A missing file renders as "".
// An include that would revisit a file already being rendered renders as ""
// and is logged with the full chain. An include whose file is missing is left
// as written.
func (r *Renderer) Render(path string) (string, error) {
	root, err := filepath.Abs(r.root())
	if err != nil {
		return "", fmt.Errorf("mdinclude: resolve root: %w", err)
	}
	return r.render(root, path, nil)
}

func (r *Renderer) render(root, path string, chain []string) (string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("mdinclude: resolve %s: %w", path, err)
	}

	for _, seen := range chain {
		if seen == resolved {
			r.logger().Warn("circular include detected",
				zap.String("chain", formatChain(root, append(chain, resolved))),
			)
			return "", nil
		}
	}

	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("mdinclude: read %s: %w", resolved, err)
	}

	current := append(chain[:len(chain):len(chain)], resolved)
	var renderErr error
	out := includeRe.ReplaceAllStringFunc(string(data), func(match string) string {
		if renderErr != nil {
			return match
		}
		name := strings.TrimSpace(includeRe.FindStringSubmatch(match)[1])
		target := filepath.Join(root, name)
		if filepath.IsAbs(name) {
			target = filepath.Clean(name)
		}
		if _, err := os.Stat(target); err != nil {
			return match
		}
		rendered, err := r.render(root, target, current)
		if err != nil {
			renderErr = err
			return match
		}
		return rendered
	})
	if renderErr != nil {
		return "", renderErr
	}
	return r.resolveVariables(out), nil
}

func (r *Renderer) resolveVariables(content string) string {
	return variableRe.ReplaceAllStringFunc(content, func(match string) string {
		name := variableRe.FindStringSubmatch(match)[1]
		switch strings.ToLower(name) {
		case "datetime":
			return r.now().UTC().Format(isoMillis)
		default:
			return match
		}
	})
}

func (r *Renderer) root() string {
	if r.Root == "" {
		return "."
	}
	return r.Root
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Renderer) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// formatChain 以相对 root 的路径输出 "a.md -> b.md -> a.md"
func formatChain(root string, chain []string) string {
	parts := make([]string, len(chain))
	for i, p := range chain {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = rel
		}
		parts[i] = filepath.ToSlash(p)
	}
	return strings.Join(parts, " -> ")
}
