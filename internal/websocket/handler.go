package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/rjweb/internal/auth"
)

// HandleWebSocket upgrades an authenticated admin request and runs it as a
// hub client. originPatterns lists extra hosts allowed to connect besides
// the request's own host.
func HandleWebSocket(hub *Hub, originPatterns ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, auth.UserID(r.Context()))
		client.Run(r.Context())
	}
}
