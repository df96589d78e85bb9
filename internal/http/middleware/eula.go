package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/http/response"
)

// EulaChecker is satisfied by the EULA service.
type EulaChecker interface {
	HasAccepted(ctx context.Context, userID string) (bool, error)
}

// RequireEula blocks authenticated callers that have not accepted the
// current EULA. Anonymous requests pass; when enforce is false the
// middleware does nothing.
func RequireEula(checker EulaChecker, enforce bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if !enforce || userID == "" {
			c.Next()
			return
		}
		ok, err := checker.HasAccepted(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !ok {
			response.Error(c, svcErr.Forbidden("You must accept the current EULA first").WithCode("eula_required"))
			return
		}
		c.Next()
	}
}
