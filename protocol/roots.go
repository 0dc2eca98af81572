package protocol

// Root is a filesystem or URI root a client exposes to a server.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ListRootsRequest is sent by a server to ask a client for its current
// root set.
type ListRootsRequest struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (ListRootsRequest) Method() string { return "roots/list" }

// ListRootsResult answers ListRootsRequest.
type ListRootsResult struct {
	Roots []Root `json:"roots"`
	Meta  Meta   `json:"_meta,omitempty"`
}

// RootsListChangedNotification tells a server the client's root set has
// changed.
type RootsListChangedNotification struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (RootsListChangedNotification) Method() string { return "notifications/roots/list_changed" }
