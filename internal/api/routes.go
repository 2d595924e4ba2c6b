package api

import (
	"net/http"
	"os"

	"pubhub/internal/auth"
	"pubhub/internal/db"
	"pubhub/internal/pubsub"
	"pubhub/internal/service"
	"pubhub/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB        *db.Pool
	Bus       *pubsub.Bus
	Hub       *ws.Hub
	Log       *zap.Logger
	JobClient service.JobClient
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	// Add request logging middleware
	r.Use(RequestLogger(d.Log))

	// Add JWT authentication middleware (optional - allows anonymous access)
	jwtSecret := os.Getenv("JWT_SECRET")
	jwtConfig := auth.NewJWTConfig(jwtSecret)
	r.Use(jwtConfig.Middleware)

	// Publication endpoints
	r.Post("/publications", d.publish)
	r.Post("/publications/unpublish", d.unpublish)
	r.Get("/publications", d.listPublications)
	r.Get("/publications/{bucket}/{id}", d.getPublication)
	r.Post("/publications/{bucket}/{id}/approve", d.approvePublication)
	r.Post("/publications/{bucket}/{id}/reject", d.rejectPublication)

	// Review endpoints
	r.Post("/publications/{bucket}/{id}/review", d.openReview)
	r.Get("/publications/{bucket}/{id}/review/next", d.nextReviewStop)
	r.Post("/review/visit", d.visitResource)

	// Rule endpoints
	r.Get("/rules", d.rulesAtPath)

	// Listing endpoints
	r.Get("/listing", d.getListing)
	r.Get("/entities/{id}", d.getEntity)

	// File endpoints
	r.Post("/files/sign", d.signFile)

	// WebSocket endpoint
	r.Get("/ws", d.wsHandler)

	return r
}

// publicationURL rebuilds the storage url from route params.
func publicationURL(r *http.Request) string {
	return "publications/" + chi.URLParam(r, "bucket") + "/" + chi.URLParam(r, "id")
}
