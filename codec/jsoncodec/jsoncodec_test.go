package jsoncodec

import (
	"testing"

	"github.com/google/uuid"

	"github.com/compforge/syncmesh/internal/demo"
)

func TestCodecRoundTripChatMessage(t *testing.T) {
	c := New()
	want := &demo.ChatMessage{From: "alice", To: "bob", Body: "hello", SentUnixMillis: 1234}

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

func TestCodecRoundTripCharacter(t *testing.T) {
	c := New()
	want := &demo.Character{UUID: uuid.New(), Name: "Gribok", Level: 42, Zone: "frostfen"}

	raw, err := c.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got := &demo.Character{}
	if err := c.Decode(got, raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *want {
		t.Fatalf("round-trip mismatch: want %+v, got %+v", want, got)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	c := New()
	if err := c.Decode(&demo.ChatMessage{}, []byte("{not json")); err == nil {
		t.Fatal("want a decode error for malformed input")
	}
}
