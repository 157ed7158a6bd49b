// Package media implements the Default Media Receiver application
// controller (application id CC1AD845) described in spec.md §4.5: load,
// playback transport controls, queue manipulation, and MEDIA_STATUS /
// media-error fan-out.
package media

import "github.com/go-castv2/castv2/wire"

// DefaultMediaReceiverAppID is re-exported from wire for callers that only
// import this package.
const DefaultMediaReceiverAppID = wire.DefaultMediaReceiverAppID

// PlayerState enumerates MediaStatus.PlayerState.
type PlayerState string

const (
	PlayerStateIdle      PlayerState = "IDLE"
	PlayerStatePlaying   PlayerState = "PLAYING"
	PlayerStatePaused    PlayerState = "PAUSED"
	PlayerStateBuffering PlayerState = "BUFFERING"
)

// IdleReason enumerates MediaStatus.IdleReason.
type IdleReason string

const (
	IdleReasonCancelled   IdleReason = "CANCELLED"
	IdleReasonInterrupted IdleReason = "INTERRUPTED"
	IdleReasonFinished    IdleReason = "FINISHED"
	IdleReasonError       IdleReason = "ERROR"
)

// RepeatMode enumerates MediaStatus.RepeatMode.
type RepeatMode string

const (
	RepeatOff           RepeatMode = "REPEAT_OFF"
	RepeatAll           RepeatMode = "REPEAT_ALL"
	RepeatSingle        RepeatMode = "REPEAT_SINGLE"
	RepeatAllAndShuffle RepeatMode = "REPEAT_ALL_AND_SHUFFLE"
)

// MediaInfo describes one piece of content.
type MediaInfo struct {
	ContentID   string                 `json:"contentId"`
	StreamType  string                 `json:"streamType,omitempty"`
	ContentType string                 `json:"contentType,omitempty"`
	Duration    float64                `json:"duration,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// QueueItem is one entry in a media session's queue.
type QueueItem struct {
	ItemID    int32     `json:"itemId,omitempty"`
	Media     MediaInfo `json:"media"`
	Autoplay  bool      `json:"autoplay,omitempty"`
	StartTime float64   `json:"startTime,omitempty"`
}

// Volume mirrors the receiver namespace's volume shape, repeated here to
// keep media self-contained (MEDIA_STATUS embeds its own volume object
// rather than referencing the receiver's).
type Volume struct {
	Level float64 `json:"level,omitempty"`
	Muted bool    `json:"muted,omitempty"`
}

// MediaStatus is the payload of every media response and of unsolicited
// MEDIA_STATUS broadcasts.
type MediaStatus struct {
	wire.Header
	MediaSessionID int32       `json:"mediaSessionId"`
	PlayerState    PlayerState `json:"playerState"`
	CurrentTime    float64     `json:"currentTime"`
	PlaybackRate   float64     `json:"playbackRate,omitempty"`
	IdleReason     IdleReason  `json:"idleReason,omitempty"`
	RepeatMode     RepeatMode  `json:"repeatMode,omitempty"`
	Items          []QueueItem `json:"items,omitempty"`
	Media          *MediaInfo  `json:"media,omitempty"`
	Volume         Volume      `json:"volume,omitempty"`
}

// statusEnvelope is what the device actually sends: either one status
// object directly, or (for GET_STATUS/LOAD responses) a "status" array
// with one element, depending on namespace version. This library only
// ever needs the first element.
type statusEnvelope struct {
	wire.Header
	Status []MediaStatus `json:"status"`
}

type loadRequest struct {
	wire.Header
	Media       MediaInfo   `json:"media"`
	Autoplay    bool        `json:"autoplay"`
	CurrentTime float64     `json:"currentTime"`
	Queue       []QueueItem `json:"queueItems,omitempty"`
}

type transportRequest struct {
	wire.Header
	MediaSessionID int32   `json:"mediaSessionId"`
	CurrentTime    float64 `json:"currentTime,omitempty"`
}

type queueUpdateRequest struct {
	wire.Header
	MediaSessionID int32      `json:"mediaSessionId"`
	Jump           int32      `json:"jump,omitempty"`
	RepeatMode     RepeatMode `json:"repeatMode,omitempty"`
}

type queueInsertRequest struct {
	wire.Header
	MediaSessionID int32       `json:"mediaSessionId"`
	Items          []QueueItem `json:"items"`
}

type queueRemoveRequest struct {
	wire.Header
	MediaSessionID int32   `json:"mediaSessionId"`
	ItemIDs        []int32 `json:"itemIds"`
}

type queueGetItemIDsRequest struct {
	wire.Header
	MediaSessionID int32 `json:"mediaSessionId"`
}

type queueItemIDsResponse struct {
	wire.Header
	ItemIDs []int32 `json:"itemIds"`
}

type queueGetItemsRequest struct {
	wire.Header
	MediaSessionID int32   `json:"mediaSessionId"`
	ItemIDs        []int32 `json:"itemIds"`
}

type queueItemsResponse struct {
	wire.Header
	Items []QueueItem `json:"items"`
}
