package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Anmol-345/Arcanus/internal/model"
	"github.com/Anmol-345/Arcanus/internal/platform"
)

const (
	tableChatroom = "Chatroom"
	tableMessages = "Messages"
)

// CreateChatroom inserts an empty row; the platform generates the token.
func (c *Client) CreateChatroom(ctx context.Context) (model.Chatroom, error) {
	req, err := c.newRequest(http.MethodPost, "/rest/v1/"+tableChatroom, map[string]any{})
	if err != nil {
		return model.Chatroom{}, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Prefer", "return=representation")

	var rows []model.Chatroom
	if err := c.do(req, "", &rows); err != nil {
		return model.Chatroom{}, fmt.Errorf("platform/rest: create chatroom: %w", err)
	}
	if len(rows) == 0 {
		return model.Chatroom{}, fmt.Errorf("platform/rest: create chatroom: empty representation")
	}
	return rows[0], nil
}

func (c *Client) ChatroomByToken(ctx context.Context, token string) (model.Chatroom, error) {
	path := "/rest/v1/" + tableChatroom + "?token=eq." + url.QueryEscape(token)
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return model.Chatroom{}, err
	}
	req = req.WithContext(ctx)

	var rows []model.Chatroom
	if err := c.do(req, "", &rows); err != nil {
		return model.Chatroom{}, fmt.Errorf("platform/rest: fetch chatroom: %w", err)
	}
	if len(rows) == 0 {
		return model.Chatroom{}, platform.ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) DeleteChatroom(ctx context.Context, token string) error {
	path := "/rest/v1/" + tableChatroom + "?token=eq." + url.QueryEscape(token)
	req, err := c.newRequest(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)

	if err := c.do(req, "", nil); err != nil {
		return fmt.Errorf("platform/rest: delete chatroom: %w", err)
	}
	return nil
}

func (c *Client) InsertMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	body := map[string]any{
		"RoomId":   msg.RoomID,
		"SenderId": msg.SenderID,
		"Content":  msg.Content,
	}
	req, err := c.newRequest(http.MethodPost, "/rest/v1/"+tableMessages, body)
	if err != nil {
		return model.Message{}, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Prefer", "return=representation")

	var rows []model.Message
	if err := c.do(req, "", &rows); err != nil {
		return model.Message{}, fmt.Errorf("platform/rest: insert message: %w", err)
	}
	if len(rows) == 0 {
		return model.Message{}, fmt.Errorf("platform/rest: insert message: empty representation")
	}
	return rows[0], nil
}

// MessagesByRoom loads the full history ascending by timestamp. One shot, no
// pagination, same as the rest of the application assumes.
func (c *Client) MessagesByRoom(ctx context.Context, room string) ([]model.Message, error) {
	path := "/rest/v1/" + tableMessages +
		"?RoomId=eq." + url.QueryEscape(room) + "&order=timestamp.asc"
	req, err := c.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	var rows []model.Message
	if err := c.do(req, "", &rows); err != nil {
		return nil, fmt.Errorf("platform/rest: list messages: %w", err)
	}
	return rows, nil
}
