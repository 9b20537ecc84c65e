// Chat HTTP handlers.
//
//   - POST /chat                    (authenticated test chat for the admin)
//   - GET  /chat/logs               (paginated chat history)
//   - POST /public-chat/{slug}      (widget endpoint, unauthenticated)
//
// The public endpoint is the one embedded widgets call. It carries a
// conversation id so the service can replay recent turns, and it never
// reveals provider failure detail to anonymous visitors.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// ChatRequest is the JSON payload for both chat endpoints.
type ChatRequest struct {
	Message string `json:"message" binding:"required" example:"Do you ship to Norway?"`
	// ConversationID threads public widget turns; omit to start a new one.
	ConversationID string `json:"conversation_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// ChatResponse is the reply for one conversational turn.
type ChatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
	LeadCaptured   bool   `json:"lead_captured,omitempty"`
}

// ListChatLogsResponse wraps a page of chat logs.
type ListChatLogsResponse struct {
	Logs       []domain.ChatLog `json:"logs"`
	Pagination Pagination       `json:"pagination"`
}

// PostChat godoc
// @ID          postChat
// @Summary     Chat with your own assistant
// @Description Sends one message to the caller's assistant. Uses the fine-tuned model when ready.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.ChatRequest  true  "Message"
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Company not found"
// @Router      /chat [post]
func (h *Handlers) PostChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	reply, err := h.chat.AuthChat(c.Request.Context(), userID(c), req.Message)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ChatResponse{Reply: reply.Reply, ConversationID: reply.ConversationID})
}

// ListChatLogs godoc
// @ID          listChatLogs
// @Summary     List chat logs (paginated)
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListChatLogsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Company not found"
// @Router      /chat/logs [get]
func (h *Handlers) ListChatLogs(c *gin.Context) {
	page, pageSize := clampPagination(c)
	logs, total, err := h.chat.ListLogs(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ListChatLogsResponse{
		Logs:       logs,
		Pagination: newPagination(page, pageSize, total),
	})
}

// PublicChat godoc
// @ID          publicChat
// @Summary     Widget chat endpoint
// @Description Sends one visitor message to the company behind the slug. Rate limited per IP.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       slug  path  string                true  "Company slug"  example(acme-rockets)
// @Param       body  body  handlers.ChatRequest  true  "Message and optional conversation id"
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown company"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     503  {object}  handlers.ErrorResponse  "Assistant unavailable"
// @Router      /public-chat/{slug} [post]
func (h *Handlers) PublicChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	reply, err := h.chat.PublicChat(c.Request.Context(), c.Param("slug"), req.ConversationID, req.Message)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ChatResponse{
		Reply:          reply.Reply,
		ConversationID: reply.ConversationID,
		LeadCaptured:   reply.LeadCaptured,
	})
}
