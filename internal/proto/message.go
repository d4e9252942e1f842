package proto

import "encoding/json"

// Inbound is the envelope for messages coming from a player.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeStartSearch = "start_search"
	InboundTypeStopSearch  = "stop_search"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventPlayerInfo = "player_info"
	EventNewCards   = "new_cards"
	EventNodeInfo   = "node_info"
	EventGameInfo   = "game_info"
	EventSearching  = "searching"
	EventStopped    = "search_stopped"

	ErrCodeUnauthorized = "unauthorized"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal"
	ErrCodeForbidden    = "forbidden"
	ErrCodeUnsupported  = "unsupported_version"
)

// HelloData is sent by the client to authenticate.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// Outbound is the envelope for messages sent to a player.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// PlayerInfo describes the authenticated player.
type PlayerInfo struct {
	ID       string   `json:"playerId"`
	Username string   `json:"username"`
	Picture  *string  `json:"picture,omitempty"`
	Rank     int      `json:"rank"`
	Cards    []string `json:"cards"`
}

// NewCards lists cards just granted to the player.
type NewCards struct {
	Cards []string `json:"cards"`
}

// NodeInfo tells a player where its game is hosted.
type NodeInfo struct {
	GameID string `json:"gameId"`
	NodeID string `json:"nodeId"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Status string `json:"status"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Event builds an event envelope.
func Event(name string, data any) Outbound {
	return Outbound{Type: OutboundTypeEvent, Event: name, Data: data}
}

// Fail builds an error envelope.
func Fail(code, msg string) Outbound {
	return Outbound{Type: OutboundTypeError, Error: &Error{Code: code, Msg: msg}}
}
