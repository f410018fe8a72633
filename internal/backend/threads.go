package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const scanPageLimit = 100

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func threadPath(guildID string, threadID int64, parts ...string) string {
	return guildPath(guildID, append([]string{"threads", strconv.FormatInt(threadID, 10)}, parts...)...)
}

func (c *Client) CreateThread(ctx context.Context, guildID string, req CreateThreadRequest) (Thread, error) {
	req.GuildID = guildID
	var thread Thread
	err := c.do(ctx, http.MethodPost, guildPath(guildID, "threads"), nil, req, &thread)
	return thread, err
}

func (c *Client) ListThreads(ctx context.Context, guildID string, page, limit int) (ThreadPage, error) {
	var result ThreadPage
	err := c.do(ctx, http.MethodGet, guildPath(guildID, "threads"), pageQuery(page, limit), nil, &result)
	return result, err
}

func (c *Client) GetThread(ctx context.Context, guildID string, threadID int64, page, limit int) (ThreadDetail, error) {
	var result ThreadDetail
	err := c.do(ctx, http.MethodGet, threadPath(guildID, threadID), pageQuery(page, limit), nil, &result)
	return result, err
}

func (c *Client) CloseThread(ctx context.Context, guildID string, threadID int64, req CloseThreadRequest) (Thread, error) {
	var thread Thread
	err := c.do(ctx, http.MethodPost, threadPath(guildID, threadID, "close"), nil, req, &thread)
	return thread, err
}

func (c *Client) AddMessage(ctx context.Context, guildID string, threadID int64, msg NewMessage) (Message, error) {
	msg.GuildID = guildID
	var out Message
	err := c.do(ctx, http.MethodPost, threadPath(guildID, threadID, "messages"), nil, msg, &out)
	return out, err
}

func (c *Client) UpdateUrgency(ctx context.Context, guildID string, threadID int64, urgency Urgency) (Thread, error) {
	var thread Thread
	body := struct {
		Urgency Urgency `json:"urgency"`
	}{Urgency: urgency}
	err := c.do(ctx, http.MethodPut, threadPath(guildID, threadID, "urgency"), nil, body, &thread)
	return thread, err
}

func (c *Client) ListNotes(ctx context.Context, guildID string, threadID int64) ([]Note, error) {
	var notes []Note
	err := c.do(ctx, http.MethodGet, threadPath(guildID, threadID, "notes"), nil, nil, &notes)
	return notes, err
}

func (c *Client) AddNote(ctx context.Context, guildID string, threadID int64, note NewNote) (Note, error) {
	note.GuildID = guildID
	var out Note
	err := c.do(ctx, http.MethodPost, threadPath(guildID, threadID, "notes"), nil, note, &out)
	return out, err
}

func (c *Client) ListMessages(ctx context.Context, guildID string) ([]Message, error) {
	var messages []Message
	err := c.do(ctx, http.MethodGet, guildPath(guildID, "messages"), nil, nil, &messages)
	return messages, err
}

// FindOpenThreadByUser walks the guild's threads for the user's open one.
func (c *Client) FindOpenThreadByUser(ctx context.Context, guildID, userID string) (Thread, error) {
	return c.findThread(ctx, guildID, func(t Thread) bool {
		return t.UserID == userID && t.IsOpen
	})
}

// FindThreadByChannel returns the thread mirrored by channelID, open or not.
// An open match wins over closed ones that reused the same channel.
func (c *Client) FindThreadByChannel(ctx context.Context, guildID, channelID string) (Thread, error) {
	var closed *Thread
	thread, err := c.findThread(ctx, guildID, func(t Thread) bool {
		if t.ThreadID != channelID {
			return false
		}
		if !t.IsOpen {
			if closed == nil {
				match := t
				closed = &match
			}
			return false
		}
		return true
	})
	if IsNotFound(err) && closed != nil {
		return *closed, nil
	}
	return thread, err
}

func (c *Client) findThread(ctx context.Context, guildID string, match func(Thread) bool) (Thread, error) {
	for page := 1; ; page++ {
		result, err := c.ListThreads(ctx, guildID, page, scanPageLimit)
		if err != nil {
			return Thread{}, err
		}
		for _, thread := range result.Threads {
			if match(thread) {
				return thread, nil
			}
		}
		if !result.Pagination.HasNext || len(result.Threads) == 0 {
			return Thread{}, ErrNotFound
		}
	}
}
