package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"modmail-bridge/internal/backend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	events   []ThreadClosedEvent
	messages []ThreadMessageEvent
	err      error
}

func (n *recordingNotifier) ThreadClosed(_ context.Context, event ThreadClosedEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) ThreadMessage(_ context.Context, event ThreadMessageEvent) error {
	n.messages = append(n.messages, event)
	return n.err
}

func post(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestThreadClosedFallsBackToThreadGuild(t *testing.T) {
	notifier := &recordingNotifier{}
	router := NewServer(notifier, "", nil).Router()

	rec := post(t, router, `{"type":"thread_closed","thread":{"id":7,"user_id":"u1","thread_id":"c1","guild_id":"g1"},"closed_by_id":"m1","closed_by_tag":"mod"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "g1", notifier.events[0].GuildID)
	assert.Equal(t, int64(7), notifier.events[0].Thread.ID)
	assert.Equal(t, "mod", notifier.events[0].ClosedByTag)
}

func TestUnknownTypeRejected(t *testing.T) {
	notifier := &recordingNotifier{}
	rec := post(t, NewServer(notifier, "", nil).Router(), `{"type":"thread_opened","thread":{"user_id":"u1","guild_id":"g1"}}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown webhook type")
	assert.Empty(t, notifier.events)
}

func TestNotifierFailureIs500(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("discord down")}
	rec := post(t, NewServer(notifier, "", nil).Router(), `{"type":"thread_closed","guild_id":"g1","thread":{"user_id":"u1"}}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "discord down")
}

func TestSignatureRequiredWhenSecretSet(t *testing.T) {
	notifier := &recordingNotifier{}
	router := NewServer(notifier, "s3cret", nil).Router()
	body := `{"type":"thread_closed","guild_id":"g1","thread":{"user_id":"u1"}}`

	rec := post(t, router, body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, router, body, map[string]string{SignatureHeader: Sign("wrong", []byte(body))})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, router, body, map[string]string{SignatureHeader: Sign("s3cret", []byte(body))})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, notifier.events, 1)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&recordingNotifier{}, "", nil).Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestClientSignsAndPosts(t *testing.T) {
	notifier := &recordingNotifier{}
	srv := httptest.NewServer(NewServer(notifier, "s3cret", nil).Router())
	defer srv.Close()

	client := NewClient(srv.URL+"/webhook", "s3cret", 5*time.Second)
	err := client.ThreadClosed(context.Background(), ThreadClosedEvent{
		GuildID:     "g1",
		Thread:      backend.Thread{ID: 3, UserID: "u1", ThreadID: "c1"},
		ClosedByID:  "m1",
		ClosedByTag: "mod",
	})
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "c1", notifier.events[0].Thread.ChannelID())
}

func TestClientReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(NewServer(&recordingNotifier{}, "s3cret", nil).Router())
	defer srv.Close()

	err := NewClient(srv.URL+"/webhook", "other", 5*time.Second).ThreadClosed(context.Background(), ThreadClosedEvent{GuildID: "g1", Thread: backend.Thread{UserID: "u1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestThreadMessageIsDispatched(t *testing.T) {
	notifier := &recordingNotifier{}
	router := NewServer(notifier, "", nil).Router()

	rec := post(t, router, `{"type":"thread_message","guild_id":"g1","thread":{"id":7,"user_id":"u1","thread_id":"c1"},"author_id":"m1","author_tag":"mod","content":"hello"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "hello", notifier.messages[0].Content)
	assert.Equal(t, "mod", notifier.messages[0].AuthorTag)
	assert.Empty(t, notifier.events)

	rec = post(t, router, `{"type":"thread_message","guild_id":"g1","thread":{"user_id":"u1"},"content":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, notifier.messages, 1)
}

func TestClientThreadMessageNeedsEndpoint(t *testing.T) {
	err := NewClient("", "", time.Second).ThreadMessage(context.Background(), ThreadMessageEvent{GuildID: "g1"})
	assert.ErrorIs(t, err, ErrNoEndpoint)

	notifier := &recordingNotifier{}
	srv := httptest.NewServer(NewServer(notifier, "s3cret", nil).Router())
	defer srv.Close()

	err = NewClient(srv.URL+"/webhook", "s3cret", 5*time.Second).ThreadMessage(context.Background(), ThreadMessageEvent{
		GuildID:   "g1",
		Thread:    backend.Thread{ID: 3, UserID: "u1", ThreadID: "c1"},
		AuthorTag: "mod",
		Content:   "hi there",
	})
	require.NoError(t, err)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "hi there", notifier.messages[0].Content)
}
