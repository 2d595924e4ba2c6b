package ws

import (
	"context"
	"encoding/json"

	"pubhub/internal/service"

	"go.uber.org/zap"
)

// CommandHandler handles WebSocket commands from the reviewer console.
// Reviewers drive a session over the socket: open a review, walk the
// stops, mark resources visited, then approve or reject.
type CommandHandler struct {
	pubSvc    *service.PublicationService
	reviewSvc *service.ReviewService
	log       *zap.Logger
}

func NewCommandHandler(pubSvc *service.PublicationService, reviewSvc *service.ReviewService, log *zap.Logger) *CommandHandler {
	return &CommandHandler{
		pubSvc:    pubSvc,
		reviewSvc: reviewSvc,
		log:       log,
	}
}

// HandleCommand processes a WebSocket command
func (h *CommandHandler) HandleCommand(ctx context.Context, conn *Conn, cmd map[string]interface{}) {
	op, _ := cmd["op"].(string)
	data, _ := cmd["data"].(map[string]interface{})
	msgID, _ := cmd["id"].(string)

	switch op {
	case "openReview":
		h.handleOpenReview(ctx, conn, msgID, data)
	case "nextStop":
		h.handleNextStop(ctx, conn, msgID, data)
	case "visitResource":
		h.handleVisitResource(ctx, conn, msgID, data)
	case "getPublication":
		h.handleGetPublication(ctx, conn, msgID, data)
	case "approvePublication":
		h.handleApprove(ctx, conn, msgID, data)
	case "rejectPublication":
		h.handleReject(ctx, conn, msgID, data)
	default:
		h.sendError(conn, msgID, "unknown_command", "Unknown command: "+op)
	}
}

func (h *CommandHandler) handleOpenReview(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	pubURL, _ := data["publicationUrl"].(string)
	if pubURL == "" {
		h.sendError(conn, msgID, "invalid_input", "publicationUrl required")
		return
	}
	if !conn.reviewer {
		h.sendError(conn, msgID, "forbidden", "reviewer role required")
		return
	}

	session, err := h.reviewSvc.Open(ctx, pubURL)
	if err != nil {
		h.sendError(conn, msgID, "open_failed", err.Error())
		return
	}

	// Follow progress events for this publication while reviewing
	conn.hub.Subscribe(conn, "publication:"+pubURL)

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": session,
	})
}

func (h *CommandHandler) handleNextStop(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	pubURL, _ := data["publicationUrl"].(string)
	if pubURL == "" {
		h.sendError(conn, msgID, "invalid_input", "publicationUrl required")
		return
	}

	stop, state, err := h.reviewSvc.Next(ctx, pubURL)
	if err != nil {
		h.sendError(conn, msgID, "next_failed", err.Error())
		return
	}

	resp := map[string]interface{}{"state": string(state)}
	if stop != nil {
		resp["stop"] = stop
	}
	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": resp,
	})
}

func (h *CommandHandler) handleVisitResource(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	pubURL, _ := data["publicationUrl"].(string)
	reviewURL, _ := data["reviewUrl"].(string)
	if pubURL == "" || reviewURL == "" {
		h.sendError(conn, msgID, "invalid_input", "publicationUrl and reviewUrl required")
		return
	}

	changed, err := h.reviewSvc.MarkVisited(ctx, pubURL, reviewURL)
	if err != nil {
		h.sendError(conn, msgID, "visit_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]interface{}{"reviewed": true, "changed": changed},
	})
}

func (h *CommandHandler) handleGetPublication(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	pubURL, _ := data["publicationUrl"].(string)
	if pubURL == "" {
		h.sendError(conn, msgID, "invalid_input", "publicationUrl required")
		return
	}

	detail, err := h.pubSvc.Get(ctx, pubURL)
	if err != nil {
		h.sendError(conn, msgID, "not_found", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": detail,
	})
}

func (h *CommandHandler) handleApprove(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	pubURL, _ := data["publicationUrl"].(string)
	if pubURL == "" {
		h.sendError(conn, msgID, "invalid_input", "publicationUrl required")
		return
	}
	if !conn.reviewer {
		h.sendError(conn, msgID, "forbidden", "reviewer role required")
		return
	}

	if err := h.pubSvc.Approve(ctx, pubURL, conn.userID); err != nil {
		h.sendError(conn, msgID, "approve_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]string{"status": "APPROVED"},
	})
}

func (h *CommandHandler) handleReject(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	pubURL, _ := data["publicationUrl"].(string)
	if pubURL == "" {
		h.sendError(conn, msgID, "invalid_input", "publicationUrl required")
		return
	}
	if !conn.reviewer {
		h.sendError(conn, msgID, "forbidden", "reviewer role required")
		return
	}

	if err := h.pubSvc.Reject(ctx, pubURL, conn.userID); err != nil {
		h.sendError(conn, msgID, "reject_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]string{"status": "REJECTED"},
	})
}

func (h *CommandHandler) sendResponse(conn *Conn, msgID string, response map[string]interface{}) {
	if msgID != "" {
		response["id"] = msgID
	}
	msg, _ := json.Marshal(response)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to send response, channel full")
	}
}

func (h *CommandHandler) sendError(conn *Conn, msgID, code, message string) {
	err := map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": message,
	}
	if msgID != "" {
		err["id"] = msgID
	}
	msg, _ := json.Marshal(err)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to send error, channel full")
	}
}
