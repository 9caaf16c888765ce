package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/internal/service"
)

// NotificationController streams waiting counts to read-only observers.
type NotificationController struct {
	source   service.NotificationSource
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewNotificationController(source service.NotificationSource, log *slog.Logger) *NotificationController {
	return &NotificationController{
		source:   source,
		log:      log,
		upgrader: newUpgrader(),
	}
}

func (c *NotificationController) Subscribe(ctx *gin.Context) {
	var department *int64
	if raw, ok := ctx.GetQuery("department_id"); ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid department id"})
			return
		}
		department = &id
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Warn("failed to upgrade observer connection", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	observer := c.source.Subscribe(department)
	defer observer.Close()

	runCtx, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()

	// Observers never send anything meaningful; reading only detects the close.
	go func() {
		defer cancel()
		conn.SetReadLimit(maxFrameSize)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeEvents(conn, observer.Snapshot()); err != nil {
		return
	}

	for {
		events, err := observer.Next(runCtx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.log.Debug("observer stream ended", slog.String("error", err.Error()))
			}
			return
		}
		if err := writeEvents(conn, events); err != nil {
			return
		}
	}
}

func writeEvents(conn *websocket.Conn, events []domain.Event) error {
	for _, event := range events {
		if err := writeEvent(conn, event); err != nil {
			return err
		}
	}
	return nil
}
