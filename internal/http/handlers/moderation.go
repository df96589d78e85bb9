package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/http/middleware"
	"github.com/oggyb/talenthub/internal/http/response"
	"github.com/oggyb/talenthub/internal/service/block"
	"github.com/oggyb/talenthub/internal/service/eula"
	"github.com/oggyb/talenthub/internal/service/report"
)

// ModerationHandler serves blocking, reporting and EULA routes.
type ModerationHandler struct {
	Blocks  *block.Service
	Reports *report.Service
	Eula    *eula.Service
}

type blockReq struct {
	UserID string `json:"userId" binding:"required,notundefined"`
}

type reportReq struct {
	Type           string `json:"type" binding:"required"`
	ReportedUserID string `json:"reportedUserId" binding:"omitempty,notundefined"`
	ContentID      string `json:"contentId"`
	Reason         string `json:"reason" binding:"required"`
	Description    string `json:"description"`
}

type resolveReq struct {
	ActionTaken string `json:"actionTaken" binding:"required"`
	Action      string `json:"action"`
}

type dismissReq struct {
	Reason string `json:"reason"`
}

type acceptEulaReq struct {
	Version  int   `json:"version" binding:"required,gt=0"`
	Accepted *bool `json:"accepted" binding:"required"`
}

type publishEulaReq struct {
	Version int    `json:"version" binding:"required,gt=0"`
	Content string `json:"content" binding:"required"`
}

// Block handles POST /moderation/block.
func (h *ModerationHandler) Block(c *gin.Context) {
	var req blockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	row, err := h.Blocks.Block(c.Request.Context(), middleware.UserID(c), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row, "User blocked successfully")
}

// Unblock handles DELETE /moderation/block/:userId.
func (h *ModerationHandler) Unblock(c *gin.Context) {
	if err := h.Blocks.Unblock(c.Request.Context(), middleware.UserID(c), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "User unblocked successfully")
}

// Blocked handles GET /moderation/blocked.
func (h *ModerationHandler) Blocked(c *gin.Context) {
	rows, err := h.Blocks.ListBlocked(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// Report handles POST /moderation/report.
func (h *ModerationHandler) Report(c *gin.Context) {
	var req reportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	rep, err := h.Reports.Create(c.Request.Context(), middleware.UserID(c), report.CreateInput{
		Type:           db.ReportType(req.Type),
		ReportedUserID: req.ReportedUserID,
		ContentID:      req.ContentID,
		Reason:         db.ReportReason(req.Reason),
		Description:    req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rep, "Report submitted. Our team will review it within 24 hours.")
}

// CurrentEula handles GET /moderation/eula.
func (h *ModerationHandler) CurrentEula(c *gin.Context) {
	v, err := h.Eula.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}

// AcceptEula handles POST /moderation/eula/accept.
func (h *ModerationHandler) AcceptEula(c *gin.Context) {
	var req acceptEulaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if !*req.Accepted {
		response.Error(c, svcErr.FieldValidation("accepted", "You must accept the EULA to continue"))
		return
	}
	out, err := h.Eula.Accept(c.Request.Context(), middleware.UserID(c), req.Version, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out.Record, "EULA accepted")
}

// CheckEula handles GET /moderation/eula/check.
func (h *ModerationHandler) CheckEula(c *gin.Context) {
	ok, err := h.Eula.HasAccepted(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"hasAccepted": ok})
}

// ListReports handles GET /moderation/admin/reports[?status=].
func (h *ModerationHandler) ListReports(c *gin.Context) {
	reps, err := h.Reports.All(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reps)
}

// PendingReports handles GET /moderation/admin/reports/pending.
func (h *ModerationHandler) PendingReports(c *gin.Context) {
	reps, err := h.Reports.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reps)
}

// UserReports handles GET /moderation/admin/reports/user/:userId.
func (h *ModerationHandler) UserReports(c *gin.Context) {
	reps, err := h.Reports.ForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reps)
}

// Resolve handles PATCH /moderation/admin/reports/:id/resolve.
func (h *ModerationHandler) Resolve(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	rep, err := h.Reports.Resolve(c.Request.Context(), c.Param("id"), middleware.UserID(c), report.ResolveInput{
		ActionTaken: req.ActionTaken,
		Action:      req.Action,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, "Report resolved")
}

// Dismiss handles PATCH /moderation/admin/reports/:id/dismiss. The body is optional.
func (h *ModerationHandler) Dismiss(c *gin.Context) {
	var req dismissReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
	}
	rep, err := h.Reports.Dismiss(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rep, "Report dismissed")
}

// Stats handles GET /moderation/admin/stats.
func (h *ModerationHandler) Stats(c *gin.Context) {
	stats, err := h.Reports.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// PublishEula handles POST /moderation/admin/eula.
func (h *ModerationHandler) PublishEula(c *gin.Context) {
	var req publishEulaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	v, err := h.Eula.Publish(c.Request.Context(), req.Version, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v, "EULA published")
}
