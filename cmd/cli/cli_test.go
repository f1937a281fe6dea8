package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quillhub/backend/internal/reactions"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestListNotificationsSendsTokenAndFilters(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("unread"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"notifications":[{"id":3,"type":"mention","message":"bob mentioned you","read":false}],"unread":1}`))
	})

	list, err := listNotifications(newClient(srv.URL, "secret", 0), true, 5)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "mention", list.Notifications[0].Type)
	assert.Equal(t, int64(1), list.Unread)
}

func TestToggleReactionPostsBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/comments/reactions/9", r.URL.Path)
		var buf bytes.Buffer
		buf.ReadFrom(r.Body)
		assert.JSONEq(t, `{"reaction":"laugh"}`, buf.String())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"outcome":"added","state":{"reacted":true,"type":"laugh"},"reactions":[{"type":"like","count":0},{"type":"dislike","count":0},{"type":"laugh","count":1}]}`))
	})

	res, err := toggleReaction(newClient(srv.URL, "t", 0), reactions.KindComment, "9", "laugh")
	require.NoError(t, err)
	assert.Equal(t, reactions.OutcomeAdded, res.Outcome)
	assert.Equal(t, int64(1), res.Reactions[2].Count)
}

func TestAPIErrorsAreDecoded(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"INVALID_REACTION","message":"invalid post reaction: dislike"}`))
	})

	_, err := toggleReaction(newClient(srv.URL, "t", 0), reactions.KindPost, "1", "dislike")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_REACTION", apiErr.Code)
}

func TestSearchPosts(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go generics", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"query":"go generics","posts":[{"id":1,"title":"Go generics in practice","author_id":2}],"count":1}`))
	})

	res, err := searchPosts(newClient(srv.URL, "", 0), "go generics")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "Go generics in practice", res.Posts[0].Title)

	_, err = searchPosts(newClient(srv.URL, "", 0), "   ")
	assert.Error(t, err)
}

func TestParseTarget(t *testing.T) {
	kind, id, err := parseTarget([]string{"post", "007"})
	require.NoError(t, err)
	assert.Equal(t, reactions.KindPost, kind)
	assert.Equal(t, "7", id)

	_, _, err = parseTarget([]string{"story", "1"})
	assert.Error(t, err)
	_, _, err = parseTarget([]string{"comment", "0"})
	assert.Error(t, err)
}

func TestClientFromConfigRequiresToken(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := clientFromConfig(true)
	assert.ErrorIs(t, err, errNoToken)

	viper.Set("token", "abc")
	c, err := clientFromConfig(true)
	require.NoError(t, err)
	assert.Equal(t, "abc", c.Token)
}
