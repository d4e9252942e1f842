package lobby

import "github.com/vovakirdan/arena-coordinator/internal/proto"

// Client is a connected player as seen by the hub.
type Client struct {
	ID     string
	Events chan proto.Outbound
}

// NewClient constructs a client with an initialized outbound channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan proto.Outbound, 16),
	}
}
