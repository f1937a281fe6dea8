package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quillhub/backend/internal/container"
	"github.com/quillhub/backend/internal/handlers"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/middleware"
	"github.com/quillhub/backend/internal/models"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/quillhub/backend/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// HandlersTestSuite runs the HTTP API against the fully wired services on an
// in-memory database
type HandlersTestSuite struct {
	suite.Suite
	app    *container.Container
	router *gin.Engine

	alice, bob, carol, admin *models.User
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) SetupTest() {
	app, err := container.NewTest()
	s.Require().NoError(err)
	s.app = app

	s.alice = s.createUser("alice", models.RoleUser)
	s.bob = s.createUser("bob", models.RoleUser)
	s.carol = s.createUser("carol", models.RoleUser)
	s.admin = s.createUser("root", models.RoleAdmin)

	s.router = gin.New()
	s.setupRoutes(app.Handlers())
}

func (s *HandlersTestSuite) TearDownTest() {
	sqlDB, err := s.app.DB().DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (s *HandlersTestSuite) createUser(username, role string) *models.User {
	u := &models.User{
		Email:    username + "@example.com",
		Username: username,
		Name:     username,
		Role:     role,
	}
	s.Require().NoError(s.app.Users().CreateUser(context.Background(), u))
	return u
}

// mockAuth takes the identity from X-User-ID / X-User-Role
func mockAuth(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			if required {
				util.RespondUnauthorized(c)
				c.Abort()
				return
			}
			c.Next()
			return
		}
		id, ok := util.ParseID(header)
		if !ok {
			util.RespondUnauthorized(c, "invalid user")
			c.Abort()
			return
		}
		middleware.SetIdentity(c, id, c.GetHeader("X-User-Role"), "")
		c.Next()
	}
}

func (s *HandlersTestSuite) setupRoutes(h *handlers.Handlers) {
	api := s.router.Group("/api/v1")
	required := mockAuth(true)
	optional := mockAuth(false)

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", required, h.Me)

	api.GET("/posts", h.ListPosts)
	api.GET("/posts/:postId", h.GetPost)
	api.GET("/posts/:postId/comments", h.GetComments)
	api.POST("/posts", required, h.CreatePost)
	api.PUT("/posts/:postId", required, h.UpdatePost)
	api.DELETE("/posts/:postId", required, h.DeletePost)
	api.POST("/posts/:postId/comments", required, h.CreateComment)
	api.DELETE("/comments/:commentId", required, h.DeleteComment)

	for _, k := range []reactions.Kind{reactions.KindPost, reactions.KindComment} {
		base := fmt.Sprintf("/%ss/reactions/:targetId", k)
		api.GET(base, optional, h.GetReactions(k))
		api.GET(base+"/users", h.GetReactors(k))
		api.POST(base, required, h.React(k))
		api.DELETE(base, required, h.RemoveReaction(k))
	}

	n := api.Group("/notifications", required)
	n.GET("", h.GetNotifications)
	n.GET("/unread-count", h.GetUnreadCount)
	n.PATCH("/read-all", h.MarkAllNotificationsRead)
	n.PATCH("/:id/read", h.MarkNotificationRead)
	n.DELETE("/:id", h.DeleteNotification)
	n.DELETE("", h.DeleteAllNotifications)

	api.GET("/search/posts", h.SearchPosts)

	admin := api.Group("/admin", required, middleware.RequireAdmin())
	admin.GET("/users", h.AdminListUsers)
	admin.GET("/users/:id", h.AdminGetUser)
}

func (s *HandlersTestSuite) do(method, path string, body interface{}, as *models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-User-ID", fmt.Sprint(as.ID))
		req.Header.Set("X-User-Role", as.Role)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type postBody struct {
	Post struct {
		ID      uint   `json:"id"`
		Title   string `json:"title"`
		Viewers *int   `json:"viewers"`
		Author  struct {
			Username string `json:"username"`
		} `json:"author"`
	} `json:"post"`
}

type toggleBody struct {
	Outcome string `json:"outcome"`
	State   struct {
		Reacted bool   `json:"reacted"`
		Type    string `json:"type"`
	} `json:"state"`
	Reactions []reactions.TypeCount `json:"reactions"`
}

type notificationsBody struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func (s *HandlersTestSuite) createPost(as *models.User, title string) uint {
	w := s.do(http.MethodPost, "/api/v1/posts", gin.H{"title": title, "content": "body of " + title}, as)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[postBody](s.T(), w).Post.ID
}

func (s *HandlersTestSuite) TestRegisterLoginAndMe() {
	t := s.T()
	w := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "dora@example.com", "username": "dora", "name": "Dora", "password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, w)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "dora", reg.User.Username)

	w = s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "DORA@example.com", "username": "dora2", "name": "Dora", "password": "correct-horse",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_EXISTS", decode[errorBody](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "eve@example.com", "username": "eve", "name": "Eve", "password": "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password", decode[errorBody](t, w).Field)

	w = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "dora@example.com", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "dora@example.com", "password": "correct-horse"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/auth/me", nil, &reg.User)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}](t, w)
	assert.Equal(t, "dora@example.com", me.User.Email)

	w = s.do(http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestPostLifecycle() {
	t := s.T()
	id := s.createPost(s.alice, "Hello Quill")

	w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", id), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[postBody](t, w)
	assert.Equal(t, "Hello Quill", got.Post.Title)
	assert.Equal(t, "alice", got.Post.Author.Username)
	require.NotNil(t, got.Post.Viewers)
	assert.Equal(t, 0, *got.Post.Viewers)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", id), gin.H{"title": "Hijacked"}, s.bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode[errorBody](t, w).Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", id), gin.H{"title": "Edited by admin"}, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Edited by admin", decode[postBody](t, w).Post.Title)

	w = s.do(http.MethodPost, "/api/v1/posts", gin.H{"title": "no body"}, s.alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "content", decode[errorBody](t, w).Field)

	w = s.do(http.MethodGet, "/api/v1/posts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Posts []json.RawMessage `json:"posts"`
		Meta  struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}](t, w)
	assert.Len(t, list.Posts, 1)
	assert.Equal(t, int64(1), list.Meta.Total)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", id), nil, s.alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", id), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, w).Code)

	w = s.do(http.MethodGet, "/api/v1/posts/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestCommentNotifiesOwnerAndMentions() {
	t := s.T()
	postID := s.createPost(s.alice, "Mentions")

	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID),
		gin.H{"text": "nice one @Alice, cc @carol @CAROL"}, s.bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[struct {
		Comment struct {
			ID     uint `json:"id"`
			Author struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"comment"`
	}](t, w).Comment
	assert.Equal(t, "bob", comment.Author.Username)

	w = s.do(http.MethodGet, "/api/v1/notifications", nil, s.alice)
	require.Equal(t, http.StatusOK, w.Code)
	aliceN := decode[notificationsBody](t, w)
	assert.Equal(t, int64(2), aliceN.Unread)
	types := []string{}
	for _, n := range aliceN.Notifications {
		types = append(types, n.Type)
		assert.Equal(t, s.bob.ID, n.SenderID)
	}
	assert.ElementsMatch(t, []string{models.NotificationComment, models.NotificationMention}, types)

	w = s.do(http.MethodGet, "/api/v1/notifications", nil, s.carol)
	carolN := decode[notificationsBody](t, w)
	require.Len(t, carolN.Notifications, 1)
	assert.Equal(t, models.NotificationMention, carolN.Notifications[0].Type)

	w = s.do(http.MethodGet, "/api/v1/notifications/unread-count", nil, s.bob)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", postID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), gin.H{"text": "   "}, s.bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text", decode[errorBody](t, w).Field)

	w = s.do(http.MethodPost, "/api/v1/posts/999/comments", gin.H{"text": "hello"}, s.bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.ID), nil, s.alice)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.ID), nil, s.bob)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.ID), nil, s.bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestPostReactionToggle() {
	t := s.T()
	postID := s.createPost(s.alice, "React to me")
	path := fmt.Sprintf("/api/v1/posts/reactions/%d", postID)

	w := s.do(http.MethodPost, path, gin.H{"reaction": "like"}, s.bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[toggleBody](t, w)
	assert.Equal(t, "added", res.Outcome)
	assert.Equal(t, "like", res.State.Type)
	require.Len(t, res.Reactions, 5)
	assert.Equal(t, reactions.TypeCount{Type: "like", Count: 1}, res.Reactions[0])

	w = s.do(http.MethodPost, path, gin.H{"reaction": "like"}, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[toggleBody](t, w)
	assert.Equal(t, "removed", res.Outcome)
	assert.False(t, res.State.Reacted)

	s.do(http.MethodPost, path, gin.H{"reaction": "love"}, s.bob)
	w = s.do(http.MethodPost, path, gin.H{"reaction": "haha"}, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "updated", decode[toggleBody](t, w).Outcome)

	w = s.do(http.MethodGet, path, nil, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[reactions.Summary](t, w)
	require.NotNil(t, summary.UserReaction)
	assert.Equal(t, "haha", *summary.UserReaction)
	assert.Equal(t, int64(1), summary.Counts[2].Count)

	w = s.do(http.MethodGet, path, nil, nil)
	assert.Contains(t, w.Body.String(), `"userReaction":null`)

	// one notification per transition, none for self-reactions
	s.do(http.MethodPost, path, gin.H{"reaction": "sad"}, s.alice)
	w = s.do(http.MethodGet, "/api/v1/notifications", nil, s.alice)
	aliceN := decode[notificationsBody](t, w)
	require.Len(t, aliceN.Notifications, 4)
	statuses := []string{}
	for _, n := range aliceN.Notifications {
		assert.Equal(t, models.NotificationReaction, n.Type)
		require.NotNil(t, n.ReactionStatus)
		statuses = append(statuses, *n.ReactionStatus)
	}
	assert.ElementsMatch(t, []string{"added", "removed", "added", "updated"}, statuses)

	w = s.do(http.MethodGet, path+"/users?type=haha", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reactors := decode[struct {
		Users []struct {
			Username string `json:"username"`
			Type     string `json:"type"`
		} `json:"users"`
	}](t, w)
	require.Len(t, reactors.Users, 1)
	assert.Equal(t, "bob", reactors.Users[0].Username)

	w = s.do(http.MethodPost, path, gin.H{"reaction": "dislike"}, s.bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REACTION", decode[errorBody](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/posts/reactions/999", gin.H{"reaction": "like"}, s.bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/posts/reactions/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, path, nil, s.bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "removed", decode[toggleBody](t, w).Outcome)

	w = s.do(http.MethodDelete, path, nil, s.bob)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestCommentReactions() {
	t := s.T()
	postID := s.createPost(s.alice, "Comment reactions")
	w := s.do(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), gin.H{"text": "first"}, s.bob)
	require.Equal(t, http.StatusCreated, w.Code)
	commentID := decode[struct {
		Comment struct {
			ID uint `json:"id"`
		} `json:"comment"`
	}](t, w).Comment.ID
	path := fmt.Sprintf("/api/v1/comments/reactions/%d", commentID)

	w = s.do(http.MethodPost, path, gin.H{"reaction": "love"}, s.alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, path, gin.H{"reaction": "dislike"}, s.alice)
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode[toggleBody](t, w)
	require.Len(t, res.Reactions, 3)
	assert.Equal(t, reactions.TypeCount{Type: "dislike", Count: 1}, res.Reactions[1])

	w = s.do(http.MethodGet, "/api/v1/notifications", nil, s.bob)
	bobN := decode[notificationsBody](t, w)
	require.Len(t, bobN.Notifications, 1)
	n := bobN.Notifications[0]
	assert.Equal(t, models.NotificationCommentReaction, n.Type)
	require.NotNil(t, n.CommentID)
	assert.Equal(t, commentID, *n.CommentID)
	require.NotNil(t, n.PostID)
	assert.Equal(t, postID, *n.PostID)
}

func (s *HandlersTestSuite) TestNotificationManagement() {
	t := s.T()
	postID := s.createPost(s.alice, "Inbox")
	for i := 0; i < 3; i++ {
		s.do(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), gin.H{"text": fmt.Sprintf("comment %d", i)}, s.bob)
	}

	w := s.do(http.MethodGet, "/api/v1/notifications", nil, s.alice)
	inbox := decode[notificationsBody](t, w)
	require.Len(t, inbox.Notifications, 3)
	first := inbox.Notifications[0].ID

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", first), nil, s.bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", first), nil, s.alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"read":true`)

	w = s.do(http.MethodGet, "/api/v1/notifications?unread=true", nil, s.alice)
	assert.Len(t, decode[notificationsBody](t, w).Notifications, 2)

	w = s.do(http.MethodPatch, "/api/v1/notifications/read-all", nil, s.alice)
	assert.JSONEq(t, `{"updated":2}`, w.Body.String())

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", first), nil, s.alice)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/notifications/%d", first), nil, s.alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/notifications", nil, s.alice)
	assert.JSONEq(t, `{"deleted":2}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/notifications", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestSearchFallsBackToDatabase() {
	t := s.T()
	s.createPost(s.alice, "Learning Go")
	s.createPost(s.bob, "go concurrency patterns")
	s.createPost(s.bob, "Rust notes")

	w := s.do(http.MethodGet, "/api/v1/search/posts?q=GO", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = s.do(http.MethodGet, "/api/v1/search/posts", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "q", decode[errorBody](t, w).Field)
}

func (s *HandlersTestSuite) TestAdminRoutes() {
	t := s.T()
	w := s.do(http.MethodGet, "/api/v1/admin/users", nil, s.bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/users", nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":4`)
	assert.Contains(t, w.Body.String(), "carol@example.com")

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/users/%d", s.bob.ID), nil, s.admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"bob"`)

	w = s.do(http.MethodGet, "/api/v1/admin/users/999", nil, s.admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
