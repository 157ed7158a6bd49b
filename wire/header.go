package wire

import "encoding/json"

// Header is the common envelope every STRING (JSON) payload carries. Every
// concrete request/response/broadcast struct in the session, receiver, and
// media packages embeds Header anonymously; embedding promotes these three
// fields to the top level of the JSON object, which is what lets a single
// struct play the "tagged variant" role spec.md §9 calls for without a
// reflection-based class hierarchy.
type Header struct {
	Type         string `json:"type,omitempty"`
	ResponseType string `json:"responseType,omitempty"`
	RequestID    int32  `json:"requestId,omitempty"`
}

// SetRequestID implements the correlate.StringPayload contract used by the
// correlator to splice an assigned request id into an outbound payload
// immediately before marshaling.
func (h *Header) SetRequestID(id int32) {
	h.RequestID = id
}

// GetRequestID returns the id, or 0 if this payload is not a request.
func (h *Header) GetRequestID() int32 {
	return h.RequestID
}

// IsResponse reports whether this header belongs to a reply rather than an
// unsolicited broadcast: per spec.md §3, a message is a reply when both
// Type and ResponseType are present.
func (h Header) IsResponse() bool {
	return h.Type != "" && h.ResponseType != ""
}

// ParseHeader extracts just the common header fields from a STRING payload
// without fully decoding it into a concrete message type. This is what the
// correlator and dispatcher use to decide where a message should be routed
// before anyone has committed to a concrete schema for its body.
func ParseHeader(payload []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(payload, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}
