package demo

import (
	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"
)

// ChatMessage is a transient record: the wire carries its full snapshot,
// encoded via whichever codec.Codec the host configures (jsoncodec or
// msgpcodec). It has no backing Store, so SyncUUID is never read.
type ChatMessage struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Body           string `json:"body"`
	SentUnixMillis int64  `json:"sent_unix_millis"`
}

// SyncUUID implements meta.Record; ChatMessage is transient so this
// value is never placed on the wire.
func (*ChatMessage) SyncUUID() uuid.UUID {
	return uuid.Nil
}

// MarshalMsg implements msgp.Marshaler by hand, in the tuple (positional
// array, no field-name map keys) shape msgp's generator emits for types
// annotated "msgp:tuple" — chosen here for the smaller wire size a
// frequently-sent chat payload benefits from.
func (z *ChatMessage) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 4)
	b = msgp.AppendString(b, z.From)
	b = msgp.AppendString(b, z.To)
	b = msgp.AppendString(b, z.Body)
	b = msgp.AppendInt64(b, z.SentUnixMillis)
	return b, nil
}

// UnmarshalMsg implements msgp.Unmarshaler, the inverse of MarshalMsg.
func (z *ChatMessage) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	if n != 4 {
		return bts, msgp.ArrayError{Wanted: 4, Got: n}
	}
	z.From, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return bts, err
	}
	z.To, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return bts, err
	}
	z.Body, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return bts, err
	}
	z.SentUnixMillis, bts, err = msgp.ReadInt64Bytes(bts)
	if err != nil {
		return bts, err
	}
	return bts, nil
}

// Msgsize is an upper-bound size hint, the third member of msgp's
// generated trio, used by callers that want to preallocate a buffer.
func (z *ChatMessage) Msgsize() int {
	return msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(z.From) +
		msgp.StringPrefixSize + len(z.To) +
		msgp.StringPrefixSize + len(z.Body) +
		msgp.Int64Size
}
