package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/http/middleware"
	"github.com/oggyb/talenthub/internal/http/response"
	"github.com/oggyb/talenthub/internal/service/talent"
	"github.com/oggyb/talenthub/internal/service/visibility"
)

// DiscoveryHandler serves profile reads, the talent feed and reactions.
type DiscoveryHandler struct {
	Visibility *visibility.Service
	Talents    *talent.Service
}

// Profile handles GET /users/:userId/profile.
func (h *DiscoveryHandler) Profile(c *gin.Context) {
	u, err := h.Visibility.FetchProfile(c.Request.Context(), c.Param("userId"), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Feed handles GET /talents.
func (h *DiscoveryHandler) Feed(c *gin.Context) {
	talents, err := h.Visibility.ListTalents(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, talents)
}

func (h *DiscoveryHandler) Like(c *gin.Context) {
	h.react(c, h.Talents.Like, "Talent liked")
}

func (h *DiscoveryHandler) Unlike(c *gin.Context) {
	h.react(c, h.Talents.Unlike, "Talent unliked")
}

func (h *DiscoveryHandler) Save(c *gin.Context) {
	h.react(c, h.Talents.Save, "Talent saved")
}

func (h *DiscoveryHandler) Unsave(c *gin.Context) {
	h.react(c, h.Talents.Unsave, "Talent unsaved")
}

// LikeCount handles GET /talents/:id/likes/count.
func (h *DiscoveryHandler) LikeCount(c *gin.Context) {
	n, err := h.Talents.LikeCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"talentId": c.Param("id"), "count": n})
}

// Reacted handles GET /me/talents/:kind?cursor=&limit=.
func (h *DiscoveryHandler) Reacted(c *gin.Context) {
	kind, ok := talent.ParseKind(c.Param("kind"))
	if !ok {
		response.Error(c, svcErr.FieldValidation("kind", "kind must be likes or saved"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, svcErr.FieldValidation("limit", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	var token *string
	if cursor := c.Query("cursor"); cursor != "" {
		token = &cursor
	}

	rows, next, err := h.Talents.Reacted(c.Request.Context(), middleware.UserID(c), kind, token, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, rows, next)
}

func (h *DiscoveryHandler) react(c *gin.Context, fn func(ctx context.Context, userID, talentID string) error, message string) {
	if err := fn(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"talentId": c.Param("id")}, message)
}
