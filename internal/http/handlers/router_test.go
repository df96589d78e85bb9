package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/talenthub/internal/auth"
	"github.com/oggyb/talenthub/internal/db"
	"github.com/oggyb/talenthub/internal/db/testdb"
	"github.com/oggyb/talenthub/internal/http/handlers"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type client struct {
	t       *testing.T
	handler http.Handler
	secret  string
}

type reply struct {
	Code int
	Body map[string]any
}

func (r reply) data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

func (r reply) list() []any {
	l, _ := r.Body["data"].([]any)
	return l
}

func setup(t *testing.T) (*client, *testdb.Env) {
	t.Helper()
	env := testdb.NewEnv(t)
	return &client{
		t:       t,
		handler: handlers.NewRouter(env.App),
		secret:  env.App.Config.Auth.JWTSecret,
	}, env
}

func (c *client) token(userID, role string) string {
	c.t.Helper()
	tok, err := auth.Issue(c.secret, userID, role, time.Hour)
	require.NoError(c.t, err)
	return tok
}

func (c *client) do(method, path, token string, body any) reply {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	out := reply{Code: rec.Code}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out.Body)
	}
	return out
}

func TestScenario_ConversationBlockReport(t *testing.T) {
	c, env := setup(t)
	u1 := c.token("u1", "student")
	u2 := c.token("u2", "student")
	admin := c.token("admin", "admin")

	// the EULA gate comes first
	res := c.do(http.MethodPost, "/conversations", u1, gin.H{"participantIds": []string{"u1", "u2"}})
	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "eula_required", res.Body["code"])

	res = c.do(http.MethodGet, "/moderation/eula", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 1, res.data()["version"])

	res = c.do(http.MethodPost, "/moderation/eula/accept", u1, gin.H{"version": 1, "accepted": false})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	for _, tok := range []string{u1, u2} {
		res = c.do(http.MethodPost, "/moderation/eula/accept", tok, gin.H{"version": 1, "accepted": true})
		require.Equal(t, http.StatusOK, res.Code)
	}
	res = c.do(http.MethodGet, "/moderation/eula/check", u1, nil)
	assert.Equal(t, true, res.data()["hasAccepted"])

	// find-or-create is order independent
	res = c.do(http.MethodPost, "/conversations", u1, gin.H{"participantIds": []string{"u1", "u2"}})
	require.Equal(t, http.StatusCreated, res.Code)
	convID := res.data()["id"].(string)
	assert.Len(t, res.data()["participants"], 2)

	res = c.do(http.MethodPost, "/conversations", u2, gin.H{"participantIds": []string{"u2", "u1"}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, convID, res.data()["id"])

	res = c.do(http.MethodPost, "/conversations/"+convID+"/messages", u1, gin.H{"senderId": "u1", "content": "hi"})
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, "u2", res.data()["receiverId"])

	// acting as someone else
	res = c.do(http.MethodPost, "/conversations/"+convID+"/messages", u1, gin.H{"senderId": "u2", "content": "hi"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = c.do(http.MethodGet, "/conversations?userId=u2", u1, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = c.do(http.MethodGet, "/conversations?userId=u1", u1, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, res.list(), 1)
	last := res.list()[0].(map[string]any)["lastMessage"].(map[string]any)
	assert.Equal(t, "hi", last["content"])

	// u2 blocks u1: sends and profile reads stop, the thread survives
	res = c.do(http.MethodPost, "/moderation/block", u2, gin.H{"userId": "u1"})
	require.Equal(t, http.StatusCreated, res.Code)

	res = c.do(http.MethodPost, "/conversations/"+convID+"/messages", u1, gin.H{"senderId": "u1", "content": "still there?"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = c.do(http.MethodGet, "/users/u2/profile", u1, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = c.do(http.MethodGet, "/users/u2/profile", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = c.do(http.MethodGet, "/conversations/"+convID+"/messages?userId=u1", u1, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.list(), 1)

	res = c.do(http.MethodGet, "/moderation/blocked", u2, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.list(), 1)
	require.Len(t, env.Notifier.Sent(), 1)

	// report, review, suspend
	res = c.do(http.MethodPost, "/moderation/report", u1, gin.H{"type": "USER", "reportedUserId": "u2", "reason": "HARASSMENT"})
	require.Equal(t, http.StatusCreated, res.Code)
	reportID := res.data()["id"].(string)

	res = c.do(http.MethodGet, "/moderation/admin/reports/pending", u1, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = c.do(http.MethodGet, "/moderation/admin/reports/pending", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.list(), 1)

	res = c.do(http.MethodPatch, "/moderation/admin/reports/"+reportID+"/resolve", admin, gin.H{"actionTaken": "User banned"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "RESOLVED", res.data()["status"])

	res = c.do(http.MethodPatch, "/moderation/admin/reports/"+reportID+"/dismiss", admin, nil)
	assert.Equal(t, http.StatusConflict, res.Code)

	var u db.User
	require.NoError(t, env.App.DB.First(&u, "id = ?", "u2").Error)
	assert.Equal(t, db.UserSuspended, u.Status)

	res = c.do(http.MethodGet, "/moderation/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 1, res.data()["resolvedReports"])
	assert.EqualValues(t, 1, res.data()["totalBlocks"])

	// unblock restores sending
	res = c.do(http.MethodDelete, "/moderation/block/u1", u2, nil)
	require.Equal(t, http.StatusOK, res.Code)
	res = c.do(http.MethodPost, "/conversations/"+convID+"/messages", u1, gin.H{"senderId": "u1", "content": "welcome back"})
	assert.Equal(t, http.StatusCreated, res.Code)
}

func TestValidationEnvelope(t *testing.T) {
	c, _ := setup(t)
	u1 := c.token("u1", "student")
	c.do(http.MethodPost, "/moderation/eula/accept", u1, gin.H{"version": 1, "accepted": true})

	res := c.do(http.MethodPost, "/conversations", u1, gin.H{"participantIds": []string{"u1", "undefined"}})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, false, res.Body["success"])
	assert.Equal(t, "validation_error", res.Body["code"])
	assert.Contains(t, res.Body["errors"], "participantIds")

	res = c.do(http.MethodPost, "/conversations", u1, gin.H{})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = c.do(http.MethodPost, "/moderation/report", u1, gin.H{"type": "POST", "reason": "SPAM"})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body["errors"], "type")

	res = c.do(http.MethodGet, "/conversations/missing", u1, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "not_found", res.Body["code"])
}

func TestAuthRequired(t *testing.T) {
	c, _ := setup(t)

	res := c.do(http.MethodGet, "/moderation/blocked", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = c.do(http.MethodGet, "/moderation/blocked", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = c.do(http.MethodPost, "/moderation/admin/eula", c.token("u1", "student"), gin.H{"version": 2, "content": "x"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = c.do(http.MethodPost, "/moderation/admin/eula", c.token("admin", "admin"), gin.H{"version": 2, "content": "new terms"})
	require.Equal(t, http.StatusCreated, res.Code)
	res = c.do(http.MethodGet, "/moderation/eula", "", nil)
	assert.EqualValues(t, 2, res.data()["version"])
}

func TestConversationAccess(t *testing.T) {
	c, _ := setup(t)
	u1 := c.token("u1", "student")
	u3 := c.token("u3", "student")
	admin := c.token("admin", "admin")

	res := c.do(http.MethodPost, "/moderation/eula/accept", u1, gin.H{"version": 1, "accepted": true})
	require.Equal(t, http.StatusOK, res.Code)
	res = c.do(http.MethodPost, "/conversations", u1, gin.H{"participantIds": []string{"u1", "u2"}})
	require.Equal(t, http.StatusCreated, res.Code)
	convID := res.data()["id"].(string)
	res = c.do(http.MethodPost, "/conversations/"+convID+"/messages", u1, gin.H{"senderId": "u1", "content": "secret"})
	require.Equal(t, http.StatusCreated, res.Code)

	t.Run("anonymous callers are rejected", func(t *testing.T) {
		res := c.do(http.MethodGet, "/conversations/"+convID, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)

		res = c.do(http.MethodDelete, "/conversations/"+convID, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code)

		res = c.do(http.MethodPost, "/messages/conversation", "", gin.H{"userA": "u1", "userB": "u2"})
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("history needs a viewer", func(t *testing.T) {
		res := c.do(http.MethodGet, "/conversations/"+convID+"/messages", "", nil)
		require.Equal(t, http.StatusBadRequest, res.Code)
		assert.Contains(t, res.Body["errors"], "userId")
	})

	t.Run("outsiders and participants", func(t *testing.T) {
		res := c.do(http.MethodGet, "/conversations/"+convID, u3, nil)
		assert.Equal(t, http.StatusForbidden, res.Code)

		res = c.do(http.MethodPost, "/messages/conversation", u3, gin.H{"userA": "u1", "userB": "u2"})
		assert.Equal(t, http.StatusForbidden, res.Code)

		res = c.do(http.MethodGet, "/conversations/"+convID, u1, nil)
		assert.Equal(t, http.StatusOK, res.Code)

		res = c.do(http.MethodPost, "/messages/conversation", u1, gin.H{"userA": "u1", "userB": "u2"})
		require.Equal(t, http.StatusOK, res.Code)
		assert.Len(t, res.list(), 1)
	})

	t.Run("only admins delete", func(t *testing.T) {
		res := c.do(http.MethodDelete, "/conversations/"+convID, u1, nil)
		assert.Equal(t, http.StatusForbidden, res.Code)

		res = c.do(http.MethodGet, "/conversations?userId=u1", u1, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Len(t, res.list(), 1)

		res = c.do(http.MethodDelete, "/conversations/"+convID, admin, nil)
		assert.Equal(t, http.StatusNoContent, res.Code)

		res = c.do(http.MethodGet, "/conversations?userId=u1", u1, nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Empty(t, res.list())
	})
}

func TestTalentRoutes(t *testing.T) {
	c, env := setup(t)
	require.NoError(t, env.App.DB.Create(&[]db.Talent{
		{ID: "t1", OwnerUserID: "u2", Title: "poster"},
		{ID: "t2", OwnerUserID: "u3", Title: "app"},
	}).Error)
	u1 := c.token("u1", "student")

	res := c.do(http.MethodPost, "/talents/t1/like", u1, nil)
	require.Equal(t, http.StatusOK, res.Code)
	res = c.do(http.MethodPost, "/talents/t1/like", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = c.do(http.MethodGet, "/talents/t1/likes/count", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 1, res.data()["count"])

	res = c.do(http.MethodGet, "/me/talents/likes", u1, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.list(), 1)

	res = c.do(http.MethodGet, "/me/talents/shared", u1, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	c.do(http.MethodPost, "/moderation/block", u1, gin.H{"userId": "u3"})
	res = c.do(http.MethodGet, "/talents", u1, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, res.list(), 1)
	assert.Equal(t, "t1", res.list()[0].(map[string]any)["id"])

	res = c.do(http.MethodGet, "/talents/nope/likes/count", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestOpsEndpoints(t *testing.T) {
	c, env := setup(t)

	res := c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ok", res.data()["redis"])

	env.Redis.Close()
	res = c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "degraded", res.data()["redis"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "talenthub_http_requests_total")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
