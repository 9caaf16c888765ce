package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/tutorchat/internal/domain"
	"github.com/immxrtalbeast/tutorchat/internal/service"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 16 * 1024

	// largest magnitude a JSON number carries without losing integer precision
	maxExactFloat = 1 << 53
)

type ChatController struct {
	chat     service.ChatInteractor
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewChatController(chat service.ChatInteractor, log *slog.Logger) *ChatController {
	return &ChatController{
		chat:     chat,
		log:      log,
		upgrader: newUpgrader(),
	}
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Connect upgrades the request and serves one chat client until it goes away.
func (c *ChatController) Connect(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Warn("failed to upgrade connection", slog.String("error", err.Error()))
		return
	}

	client := c.chat.Connect()
	go forwardEvents(conn, client)

	conn.SetReadLimit(maxFrameSize)
	reqCtx := ctx.Request.Context()
	for {
		var msg domain.Event
		if err := conn.ReadJSON(&msg); err != nil {
			c.chat.Disconnect(client.ID)
			client.Close()
			return
		}
		c.dispatch(reqCtx, client, msg)
	}
}

func (c *ChatController) dispatch(ctx context.Context, client *domain.Connection, msg domain.Event) {
	var err error
	switch msg.Type {
	case domain.EventIdentify:
		var userID int64
		userID, err = payloadInt64(msg.Payload, "user_id")
		if err != nil {
			client.EnqueueEvent(domain.ErrorEvent(err.Error()))
			break
		}
		_, err = c.chat.Identify(ctx, client.ID, userID)
	case domain.EventHeartbeat:
		err = c.chat.Heartbeat(client.ID)
	case domain.EventSendMessage:
		text, _ := msg.Payload["message"].(string)
		err = c.chat.SendMessage(ctx, client.ID, text)
	case domain.EventLeave:
		c.chat.Leave(client.ID)
	case domain.EventRequestConnectedUsers:
		err = c.chat.RequestConnectedUsers(client.ID)
	default:
		err = fmt.Errorf("unsupported event type: %s", msg.Type)
		client.EnqueueEvent(domain.ErrorEvent(err.Error()))
	}
	if err != nil {
		c.log.Debug("client event failed",
			slog.String("conn_id", client.ID.String()),
			slog.String("type", msg.Type),
			slog.String("error", err.Error()),
		)
	}
}

// forwardEvents is the only writer of conn. Once the client is closed it
// flushes whatever is still queued and closes the socket.
func forwardEvents(conn *websocket.Conn, client *domain.Connection) {
	defer conn.Close()
	for {
		select {
		case event := <-client.Events():
			if err := writeEvent(conn, event); err != nil {
				client.Close()
				return
			}
		case <-client.Done():
			for {
				select {
				case event := <-client.Events():
					if err := writeEvent(conn, event); err != nil {
						return
					}
				default:
					_ = conn.WriteControl(
						websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait),
					)
					return
				}
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event domain.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}

func payloadInt64(payload map[string]any, key string) (int64, error) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.Abs(v) > maxExactFloat || v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	}
	return 0, errors.New(key + " must be an integer")
}
