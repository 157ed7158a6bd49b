// Package receiver implements the receiver namespace controller described
// in spec.md §4.4: GET_STATUS, LAUNCH, STOP, SET_VOLUME, and
// GET_APP_AVAILABILITY, plus unsolicited RECEIVER_STATUS fan-out.
package receiver

import "github.com/go-castv2/castv2/wire"

// VolumeControlType enumerates how a device's volume can be adjusted.
type VolumeControlType string

const (
	VolumeControlAttenuation VolumeControlType = "ATTENUATION"
	VolumeControlFixed       VolumeControlType = "FIXED"
	VolumeControlMaster      VolumeControlType = "MASTER"
)

// Availability is the per-application result of GET_APP_AVAILABILITY.
type Availability string

const (
	AppAvailable    Availability = "APP_AVAILABLE"
	AppNotAvailable Availability = "APP_NOT_AVAILABLE"
)

// Volume mirrors the device's reported or requested volume state. Pointer
// fields on the request side (see SetVolumeRequest) distinguish "change
// this" from "leave unset"; on the response side all fields are populated.
type Volume struct {
	Level        float64           `json:"level,omitempty"`
	Muted        bool              `json:"muted,omitempty"`
	ControlType  VolumeControlType `json:"controlType,omitempty"`
	StepInterval float64           `json:"stepInterval,omitempty"`
}

// Application is one entry in DeviceStatus.Applications.
type Application struct {
	AppID             string      `json:"appId"`
	DisplayName       string      `json:"displayName,omitempty"`
	SessionID         string      `json:"sessionId,omitempty"`
	TransportID       string      `json:"transportId,omitempty"`
	Namespaces        []Namespace `json:"namespaces,omitempty"`
	IsIdleScreen      bool        `json:"isIdleScreen,omitempty"`
	LaunchedFromCloud bool        `json:"launchedFromCloud,omitempty"`
	StatusText        string      `json:"statusText,omitempty"`
}

// Namespace is a single {name} entry in an application's declared
// namespace list, matching the wire shape of a RECEIVER_STATUS broadcast.
type Namespace struct {
	Name string `json:"name"`
}

// DeviceStatus is the payload of every receiver-namespace response and of
// unsolicited RECEIVER_STATUS broadcasts.
type DeviceStatus struct {
	wire.Header
	Status struct {
		Applications []Application `json:"applications,omitempty"`
		Volume       Volume        `json:"volume,omitempty"`
	} `json:"status"`
}

// GetStatusRequest issues GET_STATUS.
type GetStatusRequest struct {
	wire.Header
}

func newGetStatusRequest() *GetStatusRequest {
	return &GetStatusRequest{Header: wire.Header{Type: "GET_STATUS"}}
}

// LaunchRequest issues LAUNCH.
type LaunchRequest struct {
	wire.Header
	AppID string `json:"appId"`
}

func newLaunchRequest(appID string) *LaunchRequest {
	return &LaunchRequest{Header: wire.Header{Type: "LAUNCH"}, AppID: appID}
}

// StopRequest issues STOP.
type StopRequest struct {
	wire.Header
	SessionID string `json:"sessionId"`
}

func newStopRequest(sessionID string) *StopRequest {
	return &StopRequest{Header: wire.Header{Type: "STOP"}, SessionID: sessionID}
}

// SetVolumeRequest issues SET_VOLUME. Level and Muted are pointers so that
// a caller can change just one of the two, matching the protocol's
// "volume object with whichever fields are present" shape.
type SetVolumeRequest struct {
	wire.Header
	Volume volumePatch `json:"volume"`
}

type volumePatch struct {
	Level *float64 `json:"level,omitempty"`
	Muted *bool    `json:"muted,omitempty"`
}

func newSetVolumeLevelRequest(level float64) *SetVolumeRequest {
	return &SetVolumeRequest{Header: wire.Header{Type: "SET_VOLUME"}, Volume: volumePatch{Level: &level}}
}

func newSetVolumeMutedRequest(muted bool) *SetVolumeRequest {
	return &SetVolumeRequest{Header: wire.Header{Type: "SET_VOLUME"}, Volume: volumePatch{Muted: &muted}}
}

// GetAppAvailabilityRequest issues GET_APP_AVAILABILITY.
type GetAppAvailabilityRequest struct {
	wire.Header
	AppID []string `json:"appId"`
}

func newGetAppAvailabilityRequest(appIDs []string) *GetAppAvailabilityRequest {
	return &GetAppAvailabilityRequest{Header: wire.Header{Type: "GET_APP_AVAILABILITY"}, AppID: appIDs}
}

// AppAvailabilityResponse is the reply to GET_APP_AVAILABILITY.
type AppAvailabilityResponse struct {
	wire.Header
	Availability map[string]Availability `json:"availability"`
}
