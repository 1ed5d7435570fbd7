package models

import "encoding/json"

// Frame types pushed over live WebSocket subscriptions.
const (
	FrameSnapshot = "snapshot"
	FrameDocument = "document"
	FrameError    = "error"
)

// Frame is one live update. Snapshot frames carry the complete list,
// document frames one collection or null once it is gone.
type Frame struct {
	Type        string       `json:"type"`
	Collections []Collection `json:"collections,omitempty"`
	Collection  *Collection  `json:"collection,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// MarshalJSON writes only the fields of the frame's type, keeping an empty
// snapshot as [] and a missing document as null.
func (f Frame) MarshalJSON() ([]byte, error) {
	switch f.Type {
	case FrameSnapshot:
		list := f.Collections
		if list == nil {
			list = []Collection{}
		}
		return json.Marshal(struct {
			Type        string       `json:"type"`
			Collections []Collection `json:"collections"`
		}{f.Type, list})
	case FrameDocument:
		return json.Marshal(struct {
			Type       string      `json:"type"`
			Collection *Collection `json:"collection"`
		}{f.Type, f.Collection})
	default:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{f.Type, f.Error})
	}
}
