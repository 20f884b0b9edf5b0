package room

// Broadcaster delivers one event to one connection. Delivery is fire-and-forget:
// a recipient that is gone or backed up loses the message.
type Broadcaster interface {
	Send(connID string, action string, data any)
}
