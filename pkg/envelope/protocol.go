package envelope

// Message types handled by the host itself.
const (
	TypeEcho  = "ipc.echo"
	TypeHello = "ipc.hello"
	// TypeError is the type of a reply reporting a host-side failure. Its
	// value is a JSON ErrorDetail.
	TypeError = "ipc.error"
)

// ErrorDetail holds structured error information carried in a TypeError reply.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// HelloRequest is the value of a TypeHello request.
type HelloRequest struct {
	ProtocolVersion string `json:"protocolVersion"`
	Client          string `json:"client,omitempty"`
}

// HelloReply is the value of a successful TypeHello reply.
type HelloReply struct {
	ProtocolVersion string `json:"protocolVersion"`
	RoutingID       int    `json:"routingId"`
}
