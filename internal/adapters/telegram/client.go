/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/rs/zerolog"
)

const apiBase = "https://api.telegram.org"

type Client struct {
    token   string
    chatIDs []int64
    base    string
    http    *http.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{token: cfg.TelegramToken, chatIDs: cfg.TelegramChatIDs, base: apiBase, http: &http.Client{Timeout: 10 * time.Second}, log: log}
}

func (c *Client) Enabled() bool { return c.token != "" && len(c.chatIDs) > 0 }

// SendMessagePlain sends without parse_mode so issue text needs no escaping.
func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
    if c.token == "" || chatID == 0 { return fmt.Errorf("telegram: missing token or chat id") }
    url := fmt.Sprintf("%s/bot%s/sendMessage", c.base, c.token)
    body := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
    b, err := json.Marshal(body)
    if err != nil { return err }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
    if err != nil { return err }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        bodyBytes, _ := io.ReadAll(resp.Body)
        return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(bodyBytes))
    }
    return nil
}

// Broadcast sends text to every configured chat and returns the first error.
func (c *Client) Broadcast(ctx context.Context, text string) error {
    var first error
    for _, chat := range c.chatIDs {
        if err := c.SendMessagePlain(ctx, chat, text); err != nil {
            c.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
            if first == nil { first = err }
        }
    }
    return first
}
