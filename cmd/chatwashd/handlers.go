package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWebhook ingests one Bot API update. Processing is synchronous; the
// engine contains its own faults, so the webhook always acknowledges.
func (srv *Server) HandleWebhook(c echo.Context) error {
	var update apiUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed update")
	}
	if update.Message == nil || update.Message.Chat.Type == "private" {
		return c.NoContent(http.StatusOK)
	}
	// a pin change invalidates the cached group metadata
	if update.Message.PinnedMessage != nil {
		srv.engine.Meta.Purge(update.Message.Chat.ID)
	}
	msg := toMessage(update.Message, srv.engine.SelfID)
	if err := srv.engine.ProcessMessage(c.Request().Context(), msg); err != nil {
		srv.logger.Error("processing update failed", "update", update.UpdateID, "err", err)
	}
	return c.NoContent(http.StatusOK)
}

type previewTextRequest struct {
	GroupID int64  `json:"group_id"`
	Text    string `json:"text"`
}

type previewResponse struct {
	Code string `json:"code"`
}

// HandlePreviewText classifies candidate text without acting on it, for
// operators testing word lists against a group's configuration.
func (srv *Server) HandlePreviewText(c echo.Context) error {
	var req previewTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	code := srv.engine.ClassifyText(c.Request().Context(), req.GroupID, req.Text)
	return c.JSON(http.StatusOK, previewResponse{Code: code})
}

type previewImageRequest struct {
	GroupID   int64  `json:"group_id"`
	ImagePath string `json:"image_path"`
}

// HandlePreviewImage runs QR detection against a local image file. The file
// is consumed.
func (srv *Server) HandlePreviewImage(c echo.Context) error {
	var req previewImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	code := srv.engine.ClassifyImage(c.Request().Context(), req.GroupID, req.ImagePath)
	return c.JSON(http.StatusOK, previewResponse{Code: code})
}
