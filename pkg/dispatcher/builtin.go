package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/morezero/runtime-ipc/pkg/envelope"
	"github.com/morezero/runtime-ipc/pkg/semver"
)

// DefaultProtocolRange is accepted by ipc.hello when no range is configured.
const DefaultProtocolRange = "^1.0.0"

func handleEcho(_ context.Context, req *Request) (string, string, error) {
	return req.Env.Type, req.Env.Value, nil
}

func helloHandler(protocolRange string) HandlerFunc {
	if protocolRange == "" {
		protocolRange = DefaultProtocolRange
	}
	return func(_ context.Context, req *Request) (string, string, error) {
		var hello envelope.HelloRequest
		if err := json.Unmarshal([]byte(req.Env.Value), &hello); err != nil {
			return "", "", NewHandlerError(CodeInvalidArgument, "Failed to parse hello request")
		}
		if err := semver.CheckCompatible(hello.ProtocolVersion, protocolRange); err != nil {
			return "", "", NewHandlerError(CodeIncompatibleVersion, err.Error())
		}

		data, err := json.Marshal(envelope.HelloReply{
			ProtocolVersion: semver.ProtocolVersion,
			RoutingID:       req.RoutingID,
		})
		if err != nil {
			return "", "", err
		}
		return envelope.TypeHello, string(data), nil
	}
}
