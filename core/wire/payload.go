package wire

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

// CompressIfWorthwhile lz4-compresses raw when it is at or above
// threshold, returning the (possibly unchanged) bytes and the flag bit
// for the record's own wire.Payload.Flags. threshold <= 0 disables
// compression. Since this decision is made per record, the resulting
// flag can legitimately differ from one payload to the next within the
// same frame.
func CompressIfWorthwhile(raw []byte, threshold int) ([]byte, byte) {
	if threshold <= 0 || len(raw) < threshold {
		return raw, 0
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return raw, 0
	}
	if err := w.Close(); err != nil {
		return raw, 0
	}
	if buf.Len() >= len(raw) {
		// Compression didn't help (small or already-dense payloads);
		// send the original bytes rather than pay lz4's frame overhead.
		return raw, 0
	}
	return buf.Bytes(), FlagCompressed
}

func decompress(payload []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(payload))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 decompress")
	}
	return out, nil
}

// ClusterKeySize is the key length nacl/secretbox requires.
const ClusterKeySize = 32

// Encrypt seals payload under key with a fresh random nonce prepended,
// returning the encrypted bytes and the flag bit for the record's own
// wire.Payload.Flags. A nil key is a no-op (encryption is optional).
func Encrypt(payload []byte, key *[ClusterKeySize]byte) ([]byte, byte) {
	if key == nil {
		return payload, 0
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return payload, 0
	}
	sealed := secretbox.Seal(nonce[:], payload, &nonce, key)
	return sealed, FlagEncrypted
}

func decrypt(payload []byte, key *[ClusterKeySize]byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("payload is encrypted but no cluster key is configured")
	}
	if len(payload) < 24 {
		return nil, errors.New("encrypted payload too short for nonce")
	}
	var nonce [24]byte
	copy(nonce[:], payload[:24])
	out, ok := secretbox.Open(nil, payload[24:], &nonce, key)
	if !ok {
		return nil, errors.New("secretbox: message authentication failed")
	}
	return out, nil
}

// DecodePayload reverses CompressIfWorthwhile/Encrypt given this one
// record's own wire.Payload.Flags: decrypt first (outermost layer
// applied at encode time), then decompress.
func DecodePayload(payload []byte, flags byte, key *[ClusterKeySize]byte) ([]byte, error) {
	out := payload
	var err error
	if flags&FlagEncrypted != 0 {
		out, err = decrypt(out, key)
		if err != nil {
			return nil, err
		}
	}
	if flags&FlagCompressed != 0 {
		out, err = decompress(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodePayload applies compression then encryption, matching the order
// DecodePayload reverses.
func EncodePayload(raw []byte, compressionThreshold int, key *[ClusterKeySize]byte) ([]byte, byte) {
	out, flags := CompressIfWorthwhile(raw, compressionThreshold)
	out, encFlag := Encrypt(out, key)
	return out, flags | encFlag
}
