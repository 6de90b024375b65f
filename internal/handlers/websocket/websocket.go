// internal/handlers/websocket/websocket.go
package websocket

import (
	"net/http"

	"wellnest-service/internal/pkg/jwt"
	"wellnest-service/internal/pkg/response"
	"wellnest-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is the gateway's concern
	},
}

type WebSocketHandler struct {
	hub      *ws.Hub
	verifier *jwt.Verifier
	logger   *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, verifier *jwt.Verifier, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		logger:   logger,
	}
}

// HandleConnection upgrades the request and registers the client for booking
// event notifications. Browsers cannot set headers on upgrade requests, so
// the token arrives as a query parameter.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "missing token")
		return
	}

	claims, err := h.verifier.VerifyAccessToken(token)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.IdentityID, h.logger)
	client.Start()
}
