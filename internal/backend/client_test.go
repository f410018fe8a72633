package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/", 5*time.Second, nil)
}

func TestCreateThreadSendsGuildScopedRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/guilds/g1/threads", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body CreateThreadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body.UserID)
		assert.Equal(t, "c1", body.ThreadID)
		assert.Equal(t, "g1", body.GuildID)
		assert.Equal(t, UrgencyHigh, body.Urgency)

		_ = json.NewEncoder(w).Encode(Thread{ID: 7, UserID: "u1", ThreadID: "c1", GuildID: "g1", IsOpen: true, Urgency: UrgencyHigh})
	})

	thread, err := client.CreateThread(context.Background(), "g1", CreateThreadRequest{UserID: "u1", ThreadID: "c1", Urgency: UrgencyHigh})
	require.NoError(t, err)
	assert.Equal(t, int64(7), thread.ID)
	assert.True(t, thread.IsOpen)
	assert.Equal(t, "c1", thread.ChannelID())
}

func TestNonSuccessStatusBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Macro not found"}`))
	})

	_, err := client.GetMacro(context.Background(), "g1", "greeting")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Macro not found", apiErr.Message)
	assert.True(t, IsNotFound(err))
}

func TestGenericServerErrorIsNotNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.ListMacros(context.Background(), "g1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestNullBodyIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	})

	_, err := client.GetMacro(context.Background(), "g1", "missing")
	assert.True(t, IsNotFound(err))
}

func TestMacroNameIsPathEscaped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/g1/macros/hello%20world", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteMacro(context.Background(), "g1", "hello world"))
}

func TestIsBlocked(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guilds/g1/blocked-users/123":
			_, _ = w.Write([]byte(`{"blocked":true,"user":{"user_id":"123"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found"}`))
		}
	})

	blocked, err := client.IsBlocked(context.Background(), "g1", "123")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = client.IsBlocked(context.Background(), "g1", "456")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestFindOpenThreadByUserWalksPages(t *testing.T) {
	var pages []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		result := ThreadPage{Pagination: Pagination{Page: page, HasNext: page < 2}}
		if page == 1 {
			result.Threads = []Thread{{ID: 1, UserID: "u1", IsOpen: false}, {ID: 2, UserID: "u2", IsOpen: true}}
		} else {
			result.Threads = []Thread{{ID: 3, UserID: "u1", IsOpen: true, ThreadID: "c3"}}
		}
		_ = json.NewEncoder(w).Encode(result)
	})

	thread, err := client.FindOpenThreadByUser(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), thread.ID)
	assert.Equal(t, []string{"1", "2"}, pages)

	_, err = client.FindOpenThreadByUser(context.Background(), "g1", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindThreadByChannelReturnsClosedWhenNoOpenMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ThreadPage{Threads: []Thread{{ID: 4, ThreadID: "c1", IsOpen: false}}})
	})

	thread, err := client.FindThreadByChannel(context.Background(), "g1", "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), thread.ID)
	assert.False(t, thread.IsOpen)
}

func TestConfigUpdateOmitsUnsetFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"moderator_role_ids": []any{}}, body)
		_ = json.NewEncoder(w).Encode(GuildConfig{GuildID: "g1"})
	})

	empty := []string{}
	_, err := client.UpdateConfig(context.Background(), "g1", ConfigUpdate{ModeratorRoleIDs: &empty})
	require.NoError(t, err)
}

func TestResetConfigSendsExplicitNulls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		value, ok := body["modmail_category_id"]
		assert.True(t, ok)
		assert.Nil(t, value)
		assert.Equal(t, false, body["randomize_names"])
		_ = json.NewEncoder(w).Encode(GuildConfig{GuildID: "g1"})
	})

	_, err := client.ResetConfig(context.Background(), "g1")
	require.NoError(t, err)
}

func TestValidateGuildsSkipsEmptyInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	})

	out, err := client.ValidateGuilds(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseUrgency(t *testing.T) {
	level, err := ParseUrgency("uRGENT")
	require.NoError(t, err)
	assert.Equal(t, UrgencyUrgent, level)

	_, err = ParseUrgency("critical")
	assert.ErrorIs(t, err, ErrInvalidUrgency)

	_, err = ParseUrgency("  ")
	assert.ErrorIs(t, err, ErrInvalidUrgency)
}

func TestAnalyticsViewsAreFilteredByGuildQuery(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g1", r.URL.Query().Get("guild_id"))
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/analytics/overview":
			_ = json.NewEncoder(w).Encode(AnalyticsOverview{TotalThreads: 4})
		case "/analytics/response-times":
			_, _ = w.Write([]byte(`{}`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	ctx := context.Background()
	overview, err := client.AnalyticsOverview(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), overview.TotalThreads)
	_, err = client.ThreadVolume(ctx, "g1")
	require.NoError(t, err)
	_, err = client.ModeratorActivity(ctx, "g1")
	require.NoError(t, err)
	_, err = client.ResponseTimes(ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/analytics/overview",
		"/analytics/thread-volume",
		"/analytics/moderator-activity",
		"/analytics/response-times",
	}, paths)
}
