package msgpcodec

import (
	"testing"

	"github.com/compforge/syncmesh/internal/demo"
)

func TestCodecRoundTripChatMessage(t *testing.T) {
	c := New()
	want := &demo.ChatMessage{From: "alice", To: "bob", Body: "hello there", SentUnixMillis: 9876}

	raw, err := c.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got := &demo.ChatMessage{}
	if err := c.Decode(got, raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *want {
		t.Fatalf("round-trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestEncodeRejectsTypeWithoutMarshaler(t *testing.T) {
	c := New()
	if _, err := c.Encode(&demo.Character{}); err == nil {
		t.Fatal("want an error encoding a type with no hand-written MarshalMsg")
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	c := New()
	raw, err := c.Encode(&demo.ChatMessage{From: "a", To: "b"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := c.Decode(&demo.ChatMessage{}, append(raw, 0xFF)); err == nil {
		t.Fatal("want an error for trailing bytes after a well-formed message")
	}
}
