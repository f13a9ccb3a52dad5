// Package wsconn adapts coder/websocket into the transport WAMP sessions run
// over: subprotocol negotiation restricted to wamp.2.json/wamp.2.msgpack, and
// a Conn wrapper that maps each subprotocol to the message encoding it carries.
package wsconn

import (
	"fmt"

	"github.com/wampd/wampd/pkg/wampmsg"
)

const (
	SubprotocolJSON    = "wamp.2.json"
	SubprotocolMsgpack = "wamp.2.msgpack"
)

// Subprotocols lists the subprotocols offered to clients, in preference
// order: msgpack first since it is the more compact framing.
var Subprotocols = []string{SubprotocolMsgpack, SubprotocolJSON}

// ErrSubprotocolRequired means the client did not offer Sec-WebSocket-Protocol at all.
var ErrSubprotocolRequired = fmt.Errorf("wsconn: Sec-WebSocket-Protocol header required")

// ErrSubprotocolMismatch means the client offered subprotocols but none of
// them are a WAMP subprotocol this router speaks.
var ErrSubprotocolMismatch = fmt.Errorf("wsconn: no matching wamp subprotocol offered")

// NegotiateSubprotocol picks the first of Subprotocols present in offered,
// and returns the wire encoding that subprotocol implies.
func NegotiateSubprotocol(offered []string) (string, wampmsg.Encoding, error) {
	if len(offered) == 0 {
		return "", 0, ErrSubprotocolRequired
	}
	for _, want := range Subprotocols {
		for _, got := range offered {
			if got == want {
				return want, encodingFor(want), nil
			}
		}
	}
	return "", 0, ErrSubprotocolMismatch
}

func encodingFor(subprotocol string) wampmsg.Encoding {
	if subprotocol == SubprotocolMsgpack {
		return wampmsg.EncodingMsgpack
	}
	return wampmsg.EncodingJSON
}
