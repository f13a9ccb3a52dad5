package wsconn

import (
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
)

const maxMessageSize = 16 << 20 // 16 MiB, matches the teacher endpoint default

// Accept upgrades r into a WebSocket connection negotiated for a WAMP
// subprotocol and returns the session-ready wrapper. The caller is
// responsible for running the read loop and for calling Close on exit.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	var offered []string
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			offered = append(offered, strings.TrimSpace(p))
		}
	}

	negotiated, _, err := NegotiateSubprotocol(offered)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	wsConn, err := ws.Accept(w, r, &ws.AcceptOptions{
		Subprotocols:       Subprotocols,
		InsecureSkipVerify: true,
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}
	wsConn.SetReadLimit(maxMessageSize)

	return New(wsConn, negotiated, r.RemoteAddr), nil
}
