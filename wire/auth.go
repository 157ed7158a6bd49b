package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// AuthError mirrors the upstream AuthError message: just an error code, the
// device's certificate chain in a real reply is intentionally never parsed
// by this library (spec.md §4.3 — certificate content is not validated).
type AuthError struct {
	ErrorType int32
}

// DeviceAuthMessage mirrors the upstream DeviceAuthMessage: a challenge
// (sent by the sender), or a response/error (sent back by the receiver).
// Only presence of the Error field is meaningful to this library.
type DeviceAuthMessage struct {
	HasChallenge bool
	HasResponse  bool
	Error        *AuthError
}

const (
	fieldAuthChallenge = protowire.Number(1)
	fieldAuthResponse  = protowire.Number(2)
	fieldAuthError     = protowire.Number(3)

	fieldAuthErrorType = protowire.Number(1)
)

// EncodeDeviceAuthChallenge produces the binary payload for an empty
// challenge: {"challenge": {}}, the only request this library ever sends
// over tp.deviceauth.
func EncodeDeviceAuthChallenge() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldAuthChallenge, protowire.BytesType)
	b = protowire.AppendBytes(b, nil)
	return b
}

// DecodeDeviceAuthMessage parses a binary tp.deviceauth reply.
func DecodeDeviceAuthMessage(b []byte) (*DeviceAuthMessage, error) {
	m := new(DeviceAuthMessage)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: invalid auth tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldAuthChallenge:
			_, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid challenge: %w", protowire.ParseError(n))
			}
			m.HasChallenge = true
			b = b[n:]
		case fieldAuthResponse:
			_, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid response: %w", protowire.ParseError(n))
			}
			m.HasResponse = true
			b = b[n:]
		case fieldAuthError:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid error: %w", protowire.ParseError(n))
			}
			authErr, err := decodeAuthError(v)
			if err != nil {
				return nil, err
			}
			m.Error = authErr
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid auth field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return m, nil
}

func decodeAuthError(b []byte) (*AuthError, error) {
	e := new(AuthError)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: invalid auth error tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldAuthErrorType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid error_type: %w", protowire.ParseError(n))
			}
			e.ErrorType = int32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: invalid auth error field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}
