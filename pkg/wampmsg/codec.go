// Package wampmsg implements the WAMP message sum type and its dual
// JSON/MessagePack wire codec.
package wampmsg

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

// Encoding selects which wire representation Encode/Decode use. It mirrors
// the sub-protocol negotiated on the WebSocket upgrade: binary frames carry
// MessagePack, text frames carry JSON.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMsgpack
)

// DecodeErrorKind classifies why a frame failed to decode.
type DecodeErrorKind int

const (
	KindFraming DecodeErrorKind = iota
	KindUnknownTag
	KindTypeMismatch
	KindUTF8
)

// DecodeError reports a malformed frame, naming both the failure class and
// the field that triggered it where one is known.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("wampmsg: decode error (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("wampmsg: decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	jsonHandle    codec.JsonHandle
	msgpackHandle codec.MsgpackHandle
)

func init() {
	jsonHandle.Canonical = false
	msgpackHandle.Canonical = false
}

func handleFor(enc Encoding) codec.Handle {
	if enc == EncodingMsgpack {
		return &msgpackHandle
	}
	return &jsonHandle
}

// Encode serializes a Message to its wire form under the given encoding.
func Encode(msg Message, enc Encoding) ([]byte, error) {
	wire, err := toWire(msg)
	if err != nil {
		return nil, err
	}
	var out []byte
	h := handleFor(enc)
	encoder := codec.NewEncoderBytes(&out, h)
	if err := encoder.Encode(wire); err != nil {
		return nil, fmt.Errorf("wampmsg: encode: %w", err)
	}
	return out, nil
}

// Decode parses a wire frame into a Message under the given encoding.
func Decode(data []byte, enc Encoding) (Message, error) {
	var wire []interface{}
	h := handleFor(enc)
	decoder := codec.NewDecoderBytes(data, h)
	if err := decoder.Decode(&wire); err != nil {
		return nil, &DecodeError{Kind: KindFraming, Err: err}
	}
	return fromWire(wire)
}

func detailsOf(m map[string]Value) map[string]interface{} {
	return ValueDict(orEmptyDict(m))
}

func orEmptyDict(m map[string]Value) map[string]Value {
	if m == nil {
		return map[string]Value{}
	}
	return m
}

// toWire builds the ordered heterogeneous array each message serializes as.
// Trailing args/kwargs are appended only per the "kwargs implies args"
// encoding rule from the spec's Codec component.
func toWire(msg Message) ([]interface{}, error) {
	switch m := msg.(type) {
	case Hello:
		return []interface{}{int64(TagHello), m.Realm, detailsOf(m.Details)}, nil
	case Welcome:
		return []interface{}{int64(TagWelcome), m.Session, detailsOf(m.Details)}, nil
	case Abort:
		return []interface{}{int64(TagAbort), detailsOf(m.Details), m.Reason}, nil
	case Goodbye:
		return []interface{}{int64(TagGoodbye), detailsOf(m.Details), m.Reason}, nil
	case Error:
		wire := []interface{}{int64(TagError), int64(m.RequestType), m.Request, detailsOf(m.Details), m.Reason}
		return appendPayload(wire, m.payload), nil
	case Publish:
		wire := []interface{}{int64(TagPublish), m.Request, detailsOf(m.Options), m.Topic}
		return appendPayload(wire, m.payload), nil
	case Published:
		return []interface{}{int64(TagPublished), m.Request, m.Publication}, nil
	case Subscribe:
		return []interface{}{int64(TagSubscribe), m.Request, detailsOf(m.Options), m.Topic}, nil
	case Subscribed:
		return []interface{}{int64(TagSubscribed), m.Request, m.Subscription}, nil
	case Unsubscribe:
		return []interface{}{int64(TagUnsubscribe), m.Request, m.Subscription}, nil
	case Unsubscribed:
		return []interface{}{int64(TagUnsubscribed), m.Request}, nil
	case Event:
		wire := []interface{}{int64(TagEvent), m.Subscription, m.Publication, detailsOf(m.Details)}
		return appendPayload(wire, m.payload), nil
	case Call:
		wire := []interface{}{int64(TagCall), m.Request, detailsOf(m.Options), m.Procedure}
		return appendPayload(wire, m.payload), nil
	case Result:
		wire := []interface{}{int64(TagResult), m.Request, detailsOf(m.Details)}
		return appendPayload(wire, m.payload), nil
	case Register:
		return []interface{}{int64(TagRegister), m.Request, detailsOf(m.Options), m.Procedure}, nil
	case Registered:
		return []interface{}{int64(TagRegistered), m.Request, m.Registration}, nil
	case Unregister:
		return []interface{}{int64(TagUnregister), m.Request, m.Registration}, nil
	case Unregistered:
		return []interface{}{int64(TagUnregistered), m.Request}, nil
	case Invocation:
		wire := []interface{}{int64(TagInvocation), m.Request, m.Registration, detailsOf(m.Details)}
		return appendPayload(wire, m.payload), nil
	case Yield:
		wire := []interface{}{int64(TagYield), m.Request, detailsOf(m.Options)}
		return appendPayload(wire, m.payload), nil
	default:
		return nil, fmt.Errorf("wampmsg: unknown message type %T", msg)
	}
}

func appendPayload(wire []interface{}, p payload) []interface{} {
	if p.hasKwargs() {
		args := ValueList(p.Args)
		if args == nil {
			args = []interface{}{}
		}
		return append(wire, args, ValueDict(p.Kwargs))
	}
	if p.Args != nil {
		return append(wire, ValueList(p.Args))
	}
	return wire
}

func fromWire(wire []interface{}) (Message, error) {
	if len(wire) < 2 {
		return nil, &DecodeError{Kind: KindFraming, Err: fmt.Errorf("message array too short (%d elements)", len(wire))}
	}
	tagVal, ok := toInt(wire[0])
	if !ok {
		return nil, &DecodeError{Kind: KindTypeMismatch, Field: "tag", Err: fmt.Errorf("tag is not an integer")}
	}
	tag := Tag(tagVal)

	switch tag {
	case TagHello:
		if len(wire) < 3 {
			return nil, shortErr("HELLO", 3, len(wire))
		}
		realm, ok := toString(wire[1])
		if !ok {
			return nil, typeErr("realm_uri")
		}
		details, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		return Hello{Realm: realm, Details: details}, nil

	case TagWelcome:
		if len(wire) < 3 {
			return nil, shortErr("WELCOME", 3, len(wire))
		}
		sid, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("session_id")
		}
		details, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		return Welcome{Session: uint64(sid), Details: details}, nil

	case TagAbort:
		if len(wire) < 3 {
			return nil, shortErr("ABORT", 3, len(wire))
		}
		details, err := toDict(wire[1])
		if err != nil {
			return nil, err
		}
		reason, ok := toString(wire[2])
		if !ok {
			return nil, typeErr("reason_uri")
		}
		return Abort{Details: details, Reason: reason}, nil

	case TagGoodbye:
		if len(wire) < 3 {
			return nil, shortErr("GOODBYE", 3, len(wire))
		}
		details, err := toDict(wire[1])
		if err != nil {
			return nil, err
		}
		reason, ok := toString(wire[2])
		if !ok {
			return nil, typeErr("reason_uri")
		}
		return Goodbye{Details: details, Reason: reason}, nil

	case TagError:
		if len(wire) < 5 {
			return nil, shortErr("ERROR", 5, len(wire))
		}
		reqType, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_type")
		}
		reqID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("request_id")
		}
		details, err := toDict(wire[3])
		if err != nil {
			return nil, err
		}
		reason, ok := toString(wire[4])
		if !ok {
			return nil, typeErr("reason_uri")
		}
		p, err := toPayload(wire[5:])
		if err != nil {
			return nil, err
		}
		return Error{RequestType: Tag(reqType), Request: uint64(reqID), Details: details, Reason: reason, payload: p}, nil

	case TagPublish:
		if len(wire) < 4 {
			return nil, shortErr("PUBLISH", 4, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		opts, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		topic, ok := toString(wire[3])
		if !ok {
			return nil, typeErr("topic")
		}
		p, err := toPayload(wire[4:])
		if err != nil {
			return nil, err
		}
		return Publish{Request: uint64(reqID), Options: opts, Topic: topic, payload: p}, nil

	case TagPublished:
		if len(wire) < 3 {
			return nil, shortErr("PUBLISHED", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		pubID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("publication_id")
		}
		return Published{Request: uint64(reqID), Publication: uint64(pubID)}, nil

	case TagSubscribe:
		if len(wire) < 4 {
			return nil, shortErr("SUBSCRIBE", 4, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		opts, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		topic, ok := toString(wire[3])
		if !ok {
			return nil, typeErr("topic")
		}
		return Subscribe{Request: uint64(reqID), Options: opts, Topic: topic}, nil

	case TagSubscribed:
		if len(wire) < 3 {
			return nil, shortErr("SUBSCRIBED", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		subID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("subscription_id")
		}
		return Subscribed{Request: uint64(reqID), Subscription: uint64(subID)}, nil

	case TagUnsubscribe:
		if len(wire) < 3 {
			return nil, shortErr("UNSUBSCRIBE", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		subID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("subscription_id")
		}
		return Unsubscribe{Request: uint64(reqID), Subscription: uint64(subID)}, nil

	case TagUnsubscribed:
		if len(wire) < 2 {
			return nil, shortErr("UNSUBSCRIBED", 2, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		return Unsubscribed{Request: uint64(reqID)}, nil

	case TagEvent:
		if len(wire) < 4 {
			return nil, shortErr("EVENT", 4, len(wire))
		}
		subID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("subscription_id")
		}
		pubID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("publication_id")
		}
		details, err := toDict(wire[3])
		if err != nil {
			return nil, err
		}
		p, err := toPayload(wire[4:])
		if err != nil {
			return nil, err
		}
		return Event{Subscription: uint64(subID), Publication: uint64(pubID), Details: details, payload: p}, nil

	case TagCall:
		if len(wire) < 4 {
			return nil, shortErr("CALL", 4, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		opts, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		proc, ok := toString(wire[3])
		if !ok {
			return nil, typeErr("procedure")
		}
		p, err := toPayload(wire[4:])
		if err != nil {
			return nil, err
		}
		return Call{Request: uint64(reqID), Options: opts, Procedure: proc, payload: p}, nil

	case TagResult:
		if len(wire) < 3 {
			return nil, shortErr("RESULT", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		details, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		p, err := toPayload(wire[3:])
		if err != nil {
			return nil, err
		}
		return Result{Request: uint64(reqID), Details: details, payload: p}, nil

	case TagRegister:
		if len(wire) < 4 {
			return nil, shortErr("REGISTER", 4, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		opts, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		proc, ok := toString(wire[3])
		if !ok {
			return nil, typeErr("procedure")
		}
		return Register{Request: uint64(reqID), Options: opts, Procedure: proc}, nil

	case TagRegistered:
		if len(wire) < 3 {
			return nil, shortErr("REGISTERED", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		regID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("registration_id")
		}
		return Registered{Request: uint64(reqID), Registration: uint64(regID)}, nil

	case TagUnregister:
		if len(wire) < 3 {
			return nil, shortErr("UNREGISTER", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		regID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("registration_id")
		}
		return Unregister{Request: uint64(reqID), Registration: uint64(regID)}, nil

	case TagUnregistered:
		if len(wire) < 2 {
			return nil, shortErr("UNREGISTERED", 2, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		return Unregistered{Request: uint64(reqID)}, nil

	case TagInvocation:
		if len(wire) < 4 {
			return nil, shortErr("INVOCATION", 4, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		regID, ok := toInt(wire[2])
		if !ok {
			return nil, typeErr("registration_id")
		}
		details, err := toDict(wire[3])
		if err != nil {
			return nil, err
		}
		p, err := toPayload(wire[4:])
		if err != nil {
			return nil, err
		}
		return Invocation{Request: uint64(reqID), Registration: uint64(regID), Details: details, payload: p}, nil

	case TagYield:
		if len(wire) < 3 {
			return nil, shortErr("YIELD", 3, len(wire))
		}
		reqID, ok := toInt(wire[1])
		if !ok {
			return nil, typeErr("request_id")
		}
		opts, err := toDict(wire[2])
		if err != nil {
			return nil, err
		}
		p, err := toPayload(wire[3:])
		if err != nil {
			return nil, err
		}
		return Yield{Request: uint64(reqID), Options: opts, payload: p}, nil

	default:
		return nil, &DecodeError{Kind: KindUnknownTag, Err: fmt.Errorf("unknown message tag %d", tagVal)}
	}
}

func toPayload(rest []interface{}) (payload, error) {
	if len(rest) == 0 {
		return payload{}, nil
	}
	args, err := toList(rest[0])
	if err != nil {
		return payload{}, err
	}
	p := payload{Args: args}
	if len(rest) > 1 {
		kwargs, err := toDict(rest[1])
		if err != nil {
			return payload{}, err
		}
		p.Kwargs = kwargs
	}
	return p, nil
}

func toInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}

func toString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return "", false
	}
}

func toList(v interface{}) ([]Value, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, typeErr("args")
	}
	return ListFromNative(items), nil
}

func toDict(v interface{}) (map[string]Value, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		return DictFromNative(t), nil
	case map[interface{}]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, typeErr("dict key")
			}
			m[ks] = FromNative(item)
		}
		return m, nil
	case nil:
		return map[string]Value{}, nil
	default:
		return nil, typeErr("details/options")
	}
}

func shortErr(variant string, want, got int) error {
	return &DecodeError{Kind: KindFraming, Err: fmt.Errorf("%s needs at least %d elements, got %d", variant, want, got)}
}

func typeErr(field string) error {
	return &DecodeError{Kind: KindTypeMismatch, Field: field, Err: fmt.Errorf("unexpected type for %s", field)}
}
