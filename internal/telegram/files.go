package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DownloadFile resolves fileID with getFile and fetches its bytes. The
// returned name is the last segment of Telegram's file_path.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, "", fmt.Errorf("telegram getFile: missing file_id")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("telegram getFile: %w", err)
	}
	if strings.TrimSpace(f.FilePath) == "" {
		return nil, "", fmt.Errorf("telegram getFile: empty file_path")
	}
	if f.FileSize > maxDownloadBytes {
		return nil, "", fmt.Errorf("telegram file too large: %d bytes (max %d)", f.FileSize, maxDownloadBytes)
	}

	url := fmt.Sprintf(c.fileEndpoint, c.bot.Token, f.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telegram download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("telegram download: http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("telegram download: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("telegram file too large: exceeds %d bytes", maxDownloadBytes)
	}

	name := path.Base(f.FilePath)
	c.logger.Debug("telegram file downloaded",
		zap.String("file_id", fileID),
		zap.String("file_name", name),
		zap.Int("bytes", len(data)),
	)
	return data, name, nil
}
