package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/chatwash/chatwash/chatmod/engine"
)

// BotClient talks to the Telegram Bot API over HTTP. It implements
// engine.ChatClient.
type BotClient struct {
	Client *http.Client
	Host   string
	Token  string
	Logger *slog.Logger
}

func NewBotClient(host, token string, logger *slog.Logger) *BotClient {
	if host == "" {
		host = "https://api.telegram.org"
	}
	robust := retryablehttp.NewClient()
	robust.RetryWaitMin = 500 * time.Millisecond
	robust.RetryWaitMax = 10 * time.Second
	robust.RetryMax = 4
	robust.Logger = nil
	return &BotClient{
		Client: robust.StandardClient(),
		Host:   host,
		Token:  token,
		Logger: logger,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *BotClient) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/bot%s/%s", c.Host, c.Token, method)
	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatwash/"+versioninfo.Short())

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("bot API request failed: %w", err)
	}
	defer resp.Body.Close()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding bot API response: %w", err)
	}
	if !env.OK {
		return fmt.Errorf("bot API %s: %s (code %d)", method, env.Description, env.ErrorCode)
	}
	if out != nil {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

type apiChat struct {
	ID             int64  `json:"id"`
	Type           string `json:"type"`
	Username       string `json:"username"`
	Description    string `json:"description"`
	StickerSetName string `json:"sticker_set_name"`
	PinnedMessage  *struct {
		Text    string `json:"text"`
		Caption string `json:"caption"`
	} `json:"pinned_message"`
}

func (c *BotClient) getChat(ctx context.Context, target any) (*apiChat, error) {
	var chat apiChat
	if err := c.call(ctx, "getChat", map[string]any{"chat_id": target}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *BotClient) GetGroupDescription(ctx context.Context, groupID int64) (string, error) {
	chat, err := c.getChat(ctx, groupID)
	if err != nil {
		return "", err
	}
	return chat.Description, nil
}

func (c *BotClient) GetPinnedMessageText(ctx context.Context, groupID int64) (string, error) {
	chat, err := c.getChat(ctx, groupID)
	if err != nil {
		return "", err
	}
	if chat.PinnedMessage == nil {
		return "", nil
	}
	if chat.PinnedMessage.Text != "" {
		return chat.PinnedMessage.Text, nil
	}
	return chat.PinnedMessage.Caption, nil
}

func (c *BotClient) GetGroupStickerSetName(ctx context.Context, groupID int64) (string, error) {
	chat, err := c.getChat(ctx, groupID)
	if err != nil {
		return "", err
	}
	return chat.StickerSetName, nil
}

// ResolveUsername looks a public username up via getChat. The API only
// resolves chats and channels; an unknown or user-type username reports kind
// "user" with a zero id, which the engine treats as unresolvable.
func (c *BotClient) ResolveUsername(ctx context.Context, username string) (string, int64, error) {
	chat, err := c.getChat(ctx, "@"+username)
	if err != nil {
		return "", 0, err
	}
	switch chat.Type {
	case "channel", "supergroup", "group":
		return "channel", chat.ID, nil
	case "private":
		return "user", chat.ID, nil
	}
	return "", 0, nil
}

func (c *BotClient) GetChatMember(ctx context.Context, groupID, userID int64) (*engine.ChatMember, bool, error) {
	var result struct {
		Status string `json:"status"`
	}
	err := c.call(ctx, "getChatMember", map[string]any{"chat_id": groupID, "user_id": userID}, &result)
	if err != nil {
		return nil, false, err
	}
	if result.Status == "" {
		return nil, false, nil
	}
	return &engine.ChatMember{Status: result.Status}, true, nil
}

func (c *BotClient) DeleteMessage(ctx context.Context, groupID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]any{"chat_id": groupID, "message_id": messageID}, nil)
}

func (c *BotClient) BanMember(ctx context.Context, groupID, userID int64) error {
	return c.call(ctx, "banChatMember", map[string]any{"chat_id": groupID, "user_id": userID}, nil)
}

func (c *BotClient) UnbanMember(ctx context.Context, groupID, userID int64) error {
	return c.call(ctx, "unbanChatMember", map[string]any{
		"chat_id":        groupID,
		"user_id":        userID,
		"only_if_banned": true,
	}, nil)
}

// DownloadImage fetches the message photo to a temporary file and returns its
// path. The caller owns the file.
func (c *BotClient) DownloadImage(ctx context.Context, msg *engine.Message) (string, error) {
	if msg.Photo == nil || msg.Photo.FileID == "" {
		return "", nil
	}
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call(ctx, "getFile", map[string]any{"file_id": msg.Photo.FileID}, &file); err != nil {
		return "", err
	}
	if file.FilePath == "" {
		return "", nil
	}

	u := fmt.Sprintf("%s/file/bot%s/%s", c.Host, c.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file download failed: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "chatwash-img-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
