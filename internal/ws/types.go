package ws

const (
	// client - server
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPublish     = "publish"
	MsgPing        = "ping"

	// server - client
	MsgReady      = "ready"
	MsgMessage    = "message"
	MsgSubscribed = "subscribed"
	MsgPong       = "pong"
	MsgError      = "error"
)
