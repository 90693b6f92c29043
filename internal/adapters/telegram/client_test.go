package telegram

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestBroadcast_SendsToEveryChat(t *testing.T) {
    var chats []float64
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
        var body map[string]any
        require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
        chats = append(chats, body["chat_id"].(float64))
        if body["chat_id"].(float64) == 2 {
            w.WriteHeader(http.StatusBadRequest)
            return
        }
        _, _ = w.Write([]byte(`{"ok":true}`))
    }))
    defer srv.Close()

    cfg := config.Defaults()
    cfg.TelegramToken = "TOKEN"
    cfg.TelegramChatIDs = []int64{1, 2, 3}
    c := NewClient(cfg, zerolog.Nop())
    c.base = srv.URL
    require.True(t, c.Enabled())

    err := c.Broadcast(context.Background(), "sync done")
    require.Error(t, err)
    assert.Contains(t, err.Error(), "status=400")
    assert.Equal(t, []float64{1, 2, 3}, chats)
}

func TestSendMessagePlain_MissingToken(t *testing.T) {
    c := NewClient(config.Defaults(), zerolog.Nop())
    assert.False(t, c.Enabled())
    assert.Error(t, c.SendMessagePlain(context.Background(), 1, "x"))
}
