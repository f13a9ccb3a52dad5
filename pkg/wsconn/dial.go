package wsconn

import (
	"context"

	ws "github.com/coder/websocket"
)

// Dial opens a client-side WebSocket connection offering both WAMP
// subprotocols, preferring whichever the server selects.
func Dial(ctx context.Context, url string) (*Conn, error) {
	wsConn, _, err := ws.Dial(ctx, url, &ws.DialOptions{Subprotocols: Subprotocols})
	if err != nil {
		return nil, err
	}
	wsConn.SetReadLimit(maxMessageSize)
	return New(wsConn, wsConn.Subprotocol(), ""), nil
}
