package wire

import (
	"bytes"
	"testing"
)

// Property 5 (persistent vs transient framing): decode(encode(frame)) == frame.
func TestFrameRoundTripPlain(t *testing.T) {
	f := Frame{
		TypeName: "Character",
		Updates:  []Payload{{Data: []byte{1, 2, 3}}, {Data: []byte{4, 5, 6}}},
		Removes:  []Payload{{Data: []byte{9, 9}}},
	}

	raw, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertFrameEqual(t, f, got)
}

// A frame mixing a compressed and an uncompressed payload in the same
// batch must round-trip each payload's own flags independently — this
// is exactly the per-record compression decision CompressIfWorthwhile
// makes, which a single frame-wide flags byte cannot represent.
func TestFrameRoundTripMixedPerPayloadFlags(t *testing.T) {
	f := Frame{
		TypeName: "ChatMessage",
		Updates: []Payload{
			{Flags: FlagCompressed, Data: []byte{1, 2, 3}},
			{Flags: 0, Data: []byte{4, 5, 6}},
			{Flags: FlagCompressed | FlagEncrypted, Data: []byte{7}},
		},
	}

	raw, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertFrameEqual(t, f, got)
}

func TestFrameRoundTripEmptySets(t *testing.T) {
	f := Frame{TypeName: "ChatMessage"}
	raw, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TypeName != f.TypeName || len(got.Updates) != 0 || len(got.Removes) != 0 {
		t.Fatalf("unexpected decode result: %+v", got)
	}
}

// A persistent-type payload is exactly 16 bytes once UUID-encoded; the
// frame layer itself is payload-agnostic, so this asserts the frame
// carries whatever 16-byte slices it's given through unchanged.
func TestFramePersistentPayloadSizeIsPreserved(t *testing.T) {
	uuidPayload := make([]byte, 16)
	for i := range uuidPayload {
		uuidPayload[i] = byte(i)
	}
	f := Frame{TypeName: "Character", Updates: []Payload{{Data: uuidPayload}}}

	raw, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Updates) != 1 || len(got.Updates[0].Data) != 16 {
		t.Fatalf("want a single 16-byte update payload, got %+v", got.Updates)
	}
	if !bytes.Equal(got.Updates[0].Data, uuidPayload) {
		t.Fatalf("payload bytes mismatch")
	}
}

// S6: an unrecognized type name's frame must still be fully consumable
// — i.e. Decode never needs registry knowledge to finish.
func TestFrameDecodeDoesNotRequireKnownType(t *testing.T) {
	f := Frame{
		TypeName: "TotallyUnknownType",
		Updates:  []Payload{{Data: []byte{1}}},
		Removes:  []Payload{{Data: []byte{2}}, {Data: []byte{3}}},
	}
	raw, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode of an unknown type name must still succeed: %v", err)
	}
	assertFrameEqual(t, f, got)
}

func TestFrameEncodeRejectsOversizedTypeName(t *testing.T) {
	huge := make([]byte, 1<<17)
	if _, err := Encode(Frame{TypeName: string(huge)}); err == nil {
		t.Fatal("want an error for a type name exceeding the u16 length prefix")
	}
}

// A malformed frame claiming a far larger payload count than the bytes
// actually available must fail decode rather than attempt a
// multi-gigabyte allocation up front.
func TestFrameDecodeRejectsOversizedCount(t *testing.T) {
	var raw []byte
	raw = append(raw, 1, 0) // type name length = 1 (little-endian u16)
	raw = append(raw, 'X')
	raw = append(raw, 0xFF, 0xFF, 0xFF, 0xFF) // updates count = ~4 billion, no backing bytes
	if _, err := Decode(raw); err == nil {
		t.Fatal("want an error for a payload count exceeding the remaining buffer")
	}
}

// Likewise, a payload claiming a length far larger than the remaining
// buffer must fail rather than allocate up front.
func TestFrameDecodeRejectsOversizedPayloadLength(t *testing.T) {
	var raw []byte
	raw = append(raw, 1, 0) // type name length = 1
	raw = append(raw, 'X')
	raw = append(raw, 1, 0, 0, 0) // updates count = 1
	raw = append(raw, 0)          // payload flags
	raw = append(raw, 0xFF, 0xFF, 0xFF, 0x7F) // payload length ~2GB, no backing bytes
	if _, err := Decode(raw); err == nil {
		t.Fatal("want an error for a payload length exceeding the remaining buffer")
	}
}

func assertFrameEqual(t *testing.T, want, got Frame) {
	t.Helper()
	if want.TypeName != got.TypeName {
		t.Fatalf("header mismatch: want %+v, got %+v", want, got)
	}
	if len(want.Updates) != len(got.Updates) || len(want.Removes) != len(got.Removes) {
		t.Fatalf("set size mismatch: want %+v, got %+v", want, got)
	}
	for i := range want.Updates {
		if want.Updates[i].Flags != got.Updates[i].Flags || !bytes.Equal(want.Updates[i].Data, got.Updates[i].Data) {
			t.Fatalf("update[%d] mismatch: want %+v, got %+v", i, want.Updates[i], got.Updates[i])
		}
	}
	for i := range want.Removes {
		if want.Removes[i].Flags != got.Removes[i].Flags || !bytes.Equal(want.Removes[i].Data, got.Removes[i].Data) {
			t.Fatalf("remove[%d] mismatch: want %+v, got %+v", i, want.Removes[i], got.Removes[i])
		}
	}
}
