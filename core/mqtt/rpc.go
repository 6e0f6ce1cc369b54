// Package mqtt defines the request/reply messages exchanged between the power
// admission agent and its consumers, and the interfaces used to send them.
package mqtt

import (
	"context"
	"fmt"
)

// Functions understood on an agent request topic.
const (
	FuncReserve   = "reserve"
	FuncRelease   = "release"
	FuncRepri     = "repri"
	FuncRevokeAll = "revoke_all"
	FuncRevoke    = "revoke"
)

// Reply status values.
const (
	StatusOK    = 0
	StatusError = 1
)

// Request is the JSON body published on <root>/agents/<name>/request.
type Request struct {
	ID        string  `json:"id"`
	ReplyTo   string  `json:"reply_to,omitempty"`
	Func      string  `json:"func"`
	Agent     string  `json:"agent,omitempty"`
	Module    string  `json:"module,omitempty"`
	Item      string  `json:"item,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Priority  int     `json:"priority,omitempty"`
	Immediate bool    `json:"immediate,omitempty"`
}

// Reply answers a Request on its reply_to topic.
type Reply struct {
	ID      string `json:"id"`
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the call succeeded.
func (r Reply) OK() bool { return r.Status == StatusOK }

// Err converts a failed reply into an error wrapping ErrRemote.
func (r Reply) Err() error {
	if r.OK() {
		return nil
	}
	if r.Code != "" {
		return fmt.Errorf("%w: %s: %s", ErrRemote, r.Code, r.Message)
	}
	return fmt.Errorf("%w: %s", ErrRemote, r.Message)
}

// Caller sends a request to an agent and waits for its reply.
type Caller interface {
	Call(ctx context.Context, agent string, req Request) (Reply, error)
}

// Publisher publishes raw payloads.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// RequestTopic returns the request topic of an agent.
func RequestTopic(root, agent string) string {
	return fmt.Sprintf("%s/agents/%s/request", root, agent)
}

// InfoTopic returns the retained info topic of an agent.
func InfoTopic(root, agent string) string {
	return fmt.Sprintf("%s/agents/%s/info", root, agent)
}

// ReplyTopic returns the reply topic of a client.
func ReplyTopic(root, clientID string) string {
	return fmt.Sprintf("%s/clients/%s/reply", root, clientID)
}
