package api

import (
	"net/http"

	"go.uber.org/zap"

	"parcelview/internal/websocket"
)

// @Summary      Live access event stream
// @Description  Upgrades to a websocket that receives every newly recorded access event. Browsers may pass the access token as the token query parameter. Admin only.
// @Tags         admin
// @Security     BearerAuth
// @Param        token  query     string  false  "Access token"
// @Success      101    {string}  string "Switching Protocols"
// @Failure      401    {string}  string "Unauthorized"
// @Failure      403    {string}  string "Admin role required"
// @Router       /admin/stream [get]
func (s *Server) ServeAdminStreamHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.UserID)
	if !s.wsHub.Join(client) {
		s.logger.Info("admin stream refused, hub stopped", zap.String("user_id", claims.UserID.String()))
		conn.Close()
		return
	}

	go client.ReadPump()
	go client.WritePump()
}
