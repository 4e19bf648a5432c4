package rest

import (
	"context"
	"fmt"
	"net/http"
)

// JoinChatroom invokes the platform's atomic join procedure. The procedure
// returns null or false for a full or unknown room, which the caller must
// treat as a semantic refusal, not a failure.
func (c *Client) JoinChatroom(ctx context.Context, token string) (bool, error) {
	req, err := c.newRequest(http.MethodPost, "/rest/v1/rpc/join_chatroom",
		map[string]string{"room_token": token})
	if err != nil {
		return false, err
	}
	req = req.WithContext(ctx)

	var joined *bool
	if err := c.do(req, "", &joined); err != nil {
		return false, fmt.Errorf("platform/rest: join_chatroom: %w", err)
	}
	return joined != nil && *joined, nil
}
