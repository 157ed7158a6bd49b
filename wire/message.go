// Package wire implements the Cast V2 wire format: the length-prefixed
// CastMessage envelope and the small set of binary sub-messages used during
// the authentication handshake.
//
// CastMessage is encoded exactly as the upstream protobuf schema describes
// it, but this package does not depend on generated protobuf code. Instead
// it drives the low-level field encoder/decoder in
// google.golang.org/protobuf/encoding/protowire directly, which keeps the
// core free of a vendored .proto toolchain while remaining byte-compatible
// with a real Cast receiver.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Namespaces consumed by this library.
const (
	NamespaceDeviceAuth = "urn:x-cast:com.google.cast.tp.deviceauth"
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"
)

// DefaultSenderIDPrefix and DefaultReceiverID are the conventional source
// prefix and destination identifier for receiver-level traffic.
const (
	DefaultSenderIDPrefix = "sender-0"
	DefaultReceiverID     = "receiver-0"
)

// DefaultMediaReceiverAppID is the built-in playback application.
const DefaultMediaReceiverAppID = "CC1AD845"

// ProtocolVersion identifies the CastMessage wire schema version.
type ProtocolVersion int32

// CASTV2_1_0 is the only protocol version this library speaks.
const CASTV2_1_0 ProtocolVersion = 0

// PayloadType discriminates which of PayloadUTF8/PayloadBinary is set.
type PayloadType int32

const (
	PayloadTypeString PayloadType = 0
	PayloadTypeBinary PayloadType = 1
)

func (t PayloadType) String() string {
	if t == PayloadTypeBinary {
		return "BINARY"
	}
	return "STRING"
}

// field numbers, per the upstream cast_channel.proto CastMessage message.
const (
	fieldProtocolVersion = protowire.Number(1)
	fieldSourceID        = protowire.Number(2)
	fieldDestinationID   = protowire.Number(3)
	fieldNamespace       = protowire.Number(4)
	fieldPayloadType     = protowire.Number(5)
	fieldPayloadUTF8     = protowire.Number(6)
	fieldPayloadBinary   = protowire.Number(7)
)

// CastMessage is the wire unit exchanged with a receiver: exactly one
// envelope per frame, carrying either a STRING (JSON) or BINARY payload.
type CastMessage struct {
	ProtocolVersion ProtocolVersion
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
	PayloadBinary   []byte
}

// NewStringMessage builds a STRING-payload envelope.
func NewStringMessage(source, destination, namespace string, payload []byte) *CastMessage {
	return &CastMessage{
		ProtocolVersion: CASTV2_1_0,
		SourceID:        source,
		DestinationID:   destination,
		Namespace:       namespace,
		PayloadType:     PayloadTypeString,
		PayloadUTF8:     string(payload),
	}
}

// NewBinaryMessage builds a BINARY-payload envelope.
func NewBinaryMessage(source, destination, namespace string, payload []byte) *CastMessage {
	return &CastMessage{
		ProtocolVersion: CASTV2_1_0,
		SourceID:        source,
		DestinationID:   destination,
		Namespace:       namespace,
		PayloadType:     PayloadTypeBinary,
		PayloadBinary:   payload,
	}
}

// Payload returns the raw payload bytes regardless of PayloadType.
func (m *CastMessage) Payload() []byte {
	if m.PayloadType == PayloadTypeBinary {
		return m.PayloadBinary
	}
	return []byte(m.PayloadUTF8)
}

// Encode serializes m using the CastMessage wire schema.
func Encode(m *CastMessage) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldProtocolVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProtocolVersion))

	b = protowire.AppendTag(b, fieldSourceID, protowire.BytesType)
	b = protowire.AppendString(b, m.SourceID)

	b = protowire.AppendTag(b, fieldDestinationID, protowire.BytesType)
	b = protowire.AppendString(b, m.DestinationID)

	b = protowire.AppendTag(b, fieldNamespace, protowire.BytesType)
	b = protowire.AppendString(b, m.Namespace)

	b = protowire.AppendTag(b, fieldPayloadType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.PayloadType))

	if m.PayloadType == PayloadTypeBinary {
		b = protowire.AppendTag(b, fieldPayloadBinary, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PayloadBinary)
	} else {
		b = protowire.AppendTag(b, fieldPayloadUTF8, protowire.BytesType)
		b = protowire.AppendString(b, m.PayloadUTF8)
	}

	return b
}

// Decode parses a single CastMessage from b. Unknown fields are skipped so
// that a future receiver sending additional fields does not break decoding.
func Decode(b []byte) (*CastMessage, error) {
	m := new(CastMessage)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldProtocolVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid protocol_version: %w", protowire.ParseError(n))
			}
			m.ProtocolVersion = ProtocolVersion(v)
			b = b[n:]
		case fieldSourceID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid source_id: %w", protowire.ParseError(n))
			}
			m.SourceID = v
			b = b[n:]
		case fieldDestinationID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid destination_id: %w", protowire.ParseError(n))
			}
			m.DestinationID = v
			b = b[n:]
		case fieldNamespace:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid namespace: %w", protowire.ParseError(n))
			}
			m.Namespace = v
			b = b[n:]
		case fieldPayloadType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid payload_type: %w", protowire.ParseError(n))
			}
			m.PayloadType = PayloadType(v)
			b = b[n:]
		case fieldPayloadUTF8:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid payload_utf8: %w", protowire.ParseError(n))
			}
			m.PayloadUTF8 = v
			b = b[n:]
		case fieldPayloadBinary:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid payload_binary: %w", protowire.ParseError(n))
			}
			m.PayloadBinary = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return m, nil
}

// WriteFrame writes a single length-prefixed CastMessage frame to w.
func WriteFrame(w io.Writer, m *CastMessage) error {
	payload := Encode(m)

	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(payload)))

	if _, err := w.Write(lengthPrefix[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads a single length-prefixed CastMessage frame from r. A clean
// EOF before any bytes of the length prefix are read, or an EOF partway
// through the length prefix or payload, is reported as io.EOF so callers
// can treat it uniformly as "the stream closed".
func ReadFrame(r io.Reader) (*CastMessage, error) {
	var lengthPrefix [4]byte
	if _, err := io.ReadFull(r, lengthPrefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(lengthPrefix[:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	return Decode(payload)
}
