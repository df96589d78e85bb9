package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/http/middleware"
	"github.com/oggyb/talenthub/internal/http/response"
	"github.com/oggyb/talenthub/internal/service/conversation"
	"github.com/oggyb/talenthub/internal/service/message"
)

// ConversationHandler serves conversation and message routes.
type ConversationHandler struct {
	Conversations *conversation.Service
	Messages      *message.Service
}

type createConversationReq struct {
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1,notundefined"`
}

type sendMessageReq struct {
	SenderID string `json:"senderId" binding:"required,notundefined"`
	Content  string `json:"content" binding:"required,notundefined"`
}

type directMessageReq struct {
	SenderID   string `json:"senderId" binding:"required,notundefined"`
	ReceiverID string `json:"receiverId" binding:"required,notundefined"`
	Content    string `json:"content" binding:"required,notundefined"`
}

type betweenReq struct {
	UserA string `json:"userA" binding:"required,notundefined"`
	UserB string `json:"userB" binding:"required,notundefined"`
}

var errActingAsOther = svcErr.Forbidden("You can only act on your own behalf")

// List handles GET /conversations?userId=.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.Query("userId")
	if !middleware.ActingAs(c, userID) {
		response.Error(c, errActingAsOther)
		return
	}
	convs, err := h.Conversations.FindAllForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, convs)
}

// Create handles POST /conversations. 201 when a new thread was created,
// 200 when the participant set already had one.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if claims := middleware.Claims(c); claims != nil && !claims.IsAdmin() && !contains(req.ParticipantIDs, claims.UserID) {
		response.Error(c, errActingAsOther)
		return
	}

	conv, created, err := h.Conversations.FindOrCreate(c.Request.Context(), req.ParticipantIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, conv, "Conversation created")
		return
	}
	response.JSON(c, http.StatusOK, conv, "Conversation already exists")
}

// Get handles GET /conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.Conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := middleware.Claims(c); !claims.IsAdmin() && !conv.HasParticipant(claims.UserID) {
		response.Error(c, svcErr.Forbidden("You are not a participant of this conversation"))
		return
	}
	response.OK(c, conv)
}

// Delete handles DELETE /conversations/:id. Admin only.
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.Conversations.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMessages handles GET /conversations/:id/messages?userId=[&limit=&cursor=].
// Without limit or cursor the whole history is returned.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	viewer := c.Query("userId")
	if viewer == "" {
		viewer = middleware.UserID(c)
	}
	if viewer == "" {
		response.Error(c, svcErr.FieldValidation("userId", "userId is required"))
		return
	}
	if !middleware.ActingAs(c, viewer) {
		response.Error(c, errActingAsOther)
		return
	}

	cursor, hasCursor := c.GetQuery("cursor")
	rawLimit, hasLimit := c.GetQuery("limit")
	if !hasCursor && !hasLimit {
		msgs, err := h.Messages.Messages(c.Request.Context(), c.Param("id"), viewer)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, msgs)
		return
	}

	limit := 0
	if hasLimit {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 0 {
			response.Error(c, svcErr.FieldValidation("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	var token *string
	if hasCursor && cursor != "" {
		token = &cursor
	}
	msgs, next, err := h.Messages.Page(c.Request.Context(), c.Param("id"), viewer, token, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, msgs, next)
}

// Send handles POST /conversations/:id/messages.
func (h *ConversationHandler) Send(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if !middleware.ActingAs(c, req.SenderID) {
		response.Error(c, errActingAsOther)
		return
	}
	msg, err := h.Messages.Send(c.Request.Context(), c.Param("id"), req.SenderID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg, "Message sent")
}

// SendDirect handles the legacy POST /messages.
func (h *ConversationHandler) SendDirect(c *gin.Context) {
	var req directMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if !middleware.ActingAs(c, req.SenderID) {
		response.Error(c, errActingAsOther)
		return
	}
	msg, err := h.Messages.SendDirect(c.Request.Context(), req.SenderID, req.ReceiverID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg, "Message sent")
}

// Between handles the legacy POST /messages/conversation.
func (h *ConversationHandler) Between(c *gin.Context) {
	var req betweenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if claims := middleware.Claims(c); !claims.IsAdmin() &&
		claims.UserID != req.UserA && claims.UserID != req.UserB {
		response.Error(c, errActingAsOther)
		return
	}
	msgs, err := h.Messages.Between(c.Request.Context(), req.UserA, req.UserB)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, msgs)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
