package wampmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, msg Message, enc Encoding) Message {
	t.Helper()
	data, err := Encode(msg, enc)
	require.NoError(t, err)
	out, err := Decode(data, enc)
	require.NoError(t, err)
	return out
}

func TestCodec_RoundTrip(t *testing.T) {
	details := map[string]Value{"roles": Dict(map[string]Value{"broker": Dict(nil)})}

	tests := []struct {
		name string
		msg  Message
	}{
		{"hello", Hello{Realm: "realm1", Details: details}},
		{"welcome", Welcome{Session: 123456, Details: details}},
		{"abort", Abort{Details: map[string]Value{}, Reason: "wamp.error.no_such_realm"}},
		{"goodbye", Goodbye{Details: map[string]Value{}, Reason: "wamp.error.goodbye_and_out"}},
		{"error-no-payload", Error{RequestType: TagSubscribe, Request: 1, Details: map[string]Value{}, Reason: "wamp.error.invalid_argument"}},
		{"error-with-payload", Error{RequestType: TagCall, Request: 7, Details: map[string]Value{}, Reason: "wamp.error.invalid_argument", payload: NewPayload([]Value{Str("bad")}, nil)}},
		{"publish-no-args", Publish{Request: 1, Options: map[string]Value{}, Topic: "com.x.t"}},
		{"publish-args-kwargs", Publish{Request: 1, Options: map[string]Value{"acknowledge": Bool(true)}, Topic: "com.x.t", payload: NewPayload([]Value{Int(5)}, map[string]Value{"k": Str("v")})}},
		{"published", Published{Request: 1, Publication: 99}},
		{"subscribe", Subscribe{Request: 1, Options: map[string]Value{"match": Str("prefix")}, Topic: "com.x"}},
		{"subscribed", Subscribed{Request: 1, Subscription: 55}},
		{"unsubscribe", Unsubscribe{Request: 2, Subscription: 55}},
		{"unsubscribed", Unsubscribed{Request: 2}},
		{"event", Event{Subscription: 55, Publication: 99, Details: map[string]Value{"topic": Str("com.x.a")}, payload: NewPayload([]Value{Str("hi")}, nil)}},
		{"call", Call{Request: 7, Options: map[string]Value{}, Procedure: "com.add", payload: NewPayload([]Value{Int(2), Int(3)}, nil)}},
		{"result", Result{Request: 7, Details: map[string]Value{}, payload: NewPayload([]Value{Int(5)}, nil)}},
		{"register", Register{Request: 1, Options: map[string]Value{}, Procedure: "com.add"}},
		{"registered", Registered{Request: 1, Registration: 42}},
		{"unregister", Unregister{Request: 2, Registration: 42}},
		{"unregistered", Unregistered{Request: 2}},
		{"invocation", Invocation{Request: 900, Registration: 42, Details: map[string]Value{}, payload: NewPayload([]Value{Int(2), Int(3)}, nil)}},
		{"yield", Yield{Request: 900, Options: map[string]Value{}, payload: NewPayload([]Value{Int(5)}, nil)}},
	}

	for _, tt := range tests {
		for _, enc := range []Encoding{EncodingJSON, EncodingMsgpack} {
			t.Run(tt.name, func(t *testing.T) {
				got := roundTrip(t, tt.msg, enc)
				assert.Equal(t, tt.msg, got)
			})
		}
	}
}

func TestCodec_UnknownTag(t *testing.T) {
	data, err := Encode(Hello{Realm: "r", Details: map[string]Value{}}, EncodingJSON)
	require.NoError(t, err)

	// A real message still decodes; the unknown tag comes from a literal
	// array below.
	bogus, err := Encode(Subscribed{Request: 1, Subscription: 2}, EncodingJSON)
	require.NoError(t, err)
	_ = data

	_, err = Decode(bogus, EncodingJSON)
	require.NoError(t, err) // sanity: a real message still decodes

	_, err = Decode([]byte(`[9999,1,2]`), EncodingJSON)
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindUnknownTag, decErr.Kind)
}

func TestCodec_TruncatedFrame(t *testing.T) {
	_, err := Decode([]byte(`[32,1]`), EncodingJSON)
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindFraming, decErr.Kind)
}
