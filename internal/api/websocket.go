package api

import (
	"net/http"
	"os"
	"strings"

	"pubhub/internal/auth"
	"pubhub/internal/ws"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
}

func (d Dependencies) wsHandler(w http.ResponseWriter, r *http.Request) {
	d.Log.Info("WebSocket connection attempt",
		zap.String("remote", r.RemoteAddr),
		zap.String("path", r.URL.Path),
		zap.String("upgrade", r.Header.Get("Upgrade")),
	)

	// Check Hub before upgrading
	if d.Hub == nil {
		d.Log.Error("WebSocket hub not initialized")
		http.Error(w, "WebSocket hub not initialized", http.StatusInternalServerError)
		return
	}

	userID, bucket, reviewer := identityFromRequest(r)
	if userID == "" {
		userID = "anonymous"
	}
	d.Log.Info("WebSocket identity",
		zap.String("userID", userID),
		zap.String("bucket", bucket),
		zap.Bool("reviewer", reviewer),
	)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.Log.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	wsConn := ws.NewConn(conn, d.Hub, userID, bucket, reviewer)
	d.Hub.Register(wsConn)

	go wsConn.WritePump()
	go wsConn.ReadPump()
}

// identityFromRequest resolves who is connecting. Browsers cannot set
// Authorization headers on WebSocket upgrades, so the token also travels
// in a query parameter.
func identityFromRequest(r *http.Request) (userID, bucket string, reviewer bool) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		tokenString = r.Header.Get("Authorization")
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	if tokenString != "" {
		jwtSecret := os.Getenv("JWT_SECRET")
		if jwtSecret == "" {
			jwtSecret = "default-secret-key-change-in-production"
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})

		if err == nil && token.Valid {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(string); ok {
					userID = sub
				}
				if b, ok := claims["bucket"].(string); ok {
					bucket = b
				}
				if role, ok := claims["role"].(string); ok {
					reviewer = role == auth.RoleReviewer
				}
				return userID, bucket, reviewer
			}
		}
	}

	// Development header fallback
	userID = r.Header.Get("X-User-ID")
	bucket = r.Header.Get("X-Bucket")
	reviewer = r.Header.Get("X-Role") == auth.RoleReviewer
	return userID, bucket, reviewer
}
