package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/routing"
	"github.com/morezero/runtime-ipc/pkg/semver"
)

const helloLogPrefix = "client:hello"

// Hello performs the protocol handshake with the host over a blocking call
// and returns the host's reply.
func (c *Client) Hello(ctx context.Context, ec routing.Context, name string) (*envelope.HelloReply, error) {
	req, err := json.Marshal(envelope.HelloRequest{ProtocolVersion: semver.ProtocolVersion, Client: name})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode hello: %w", helloLogPrefix, err)
	}

	raw := c.SendSync(ctx, ec, envelope.TypeHello, string(req))
	if raw == "" {
		return nil, fmt.Errorf("%s - %w", helloLogPrefix, ErrSendFailed)
	}

	var reply struct {
		envelope.HelloReply
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("%s - failed to decode hello reply: %w", helloLogPrefix, err)
	}
	if reply.Code != "" {
		return nil, fmt.Errorf("%s - host rejected handshake: %s: %s", helloLogPrefix, reply.Code, reply.Message)
	}
	return &reply.HelloReply, nil
}
