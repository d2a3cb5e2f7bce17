package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/chatwash/chatwash/chatmod/configstore"
	"github.com/chatwash/chatwash/chatmod/engine"
	"github.com/chatwash/chatwash/chatmod/groupmeta"
	"github.com/chatwash/chatwash/chatmod/userstore"
	"github.com/chatwash/chatwash/chatmod/wordstore"
)

func testServer() (*Server, *engine.MockChatClient) {
	logger := slog.Default()
	chat := &engine.MockChatClient{}
	eng := &engine.Engine{
		Logger:   logger,
		Words:    wordstore.NewStore(logger, nil),
		Users:    userstore.NewMemUserStore(),
		Configs:  configstore.NewMemConfigStore(),
		Chat:     chat,
		Exchange: &engine.MockExchange{},
		Meta:     groupmeta.NewCache(logger, chat, 100, time.Hour),
		SelfID:   999,
	}
	return &Server{logger: logger, engine: eng}, chat
}

func postWebhook(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	assert.NoError(t, srv.HandleWebhook(e.NewContext(req, rec)))
	return rec
}

func TestWebhookPinChangePurgesGroupMeta(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv, chat := testServer()
	chat.PinnedText = "old rules"
	assert.Equal("old rules", srv.engine.Meta.PinnedText(ctx, -100))

	// without a purge the stale pin would be served until the TTL expires
	chat.PinnedText = "new rules"
	rec := postWebhook(t, srv, `{
		"update_id": 1,
		"message": {
			"message_id": 5,
			"chat": {"id": -100, "type": "supergroup"},
			"pinned_message": {}
		}
	}`)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("new rules", srv.engine.Meta.PinnedText(ctx, -100))
}

func TestWebhookIgnoresPrivateChats(t *testing.T) {
	assert := assert.New(t)

	srv, chat := testServer()
	rec := postWebhook(t, srv, `{
		"update_id": 2,
		"message": {
			"message_id": 6,
			"chat": {"id": 7, "type": "private"},
			"from": {"id": 7},
			"text": "hello"
		}
	}`)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(0, chat.DeletedCount())
}
