package protocol

import "encoding/json"

// Annotations hints how a client should treat a resource: who it is
// for, and how important it is relative to other resources in the same
// list.
//
// Audience is always a list on the wire, even though a caller
// constructing one by hand usually only has a single role in mind; this
// type accepts either shape when decoding, since some peers still send
// a bare string.
type Annotations struct {
	Audience []string `json:"audience,omitempty"`
	Priority float64  `json:"priority,omitempty"`
}

// UnmarshalJSON accepts audience as either a JSON string or a JSON
// array of strings, normalizing to a slice.
func (a *Annotations) UnmarshalJSON(data []byte) error {
	var wire struct {
		Audience json.RawMessage `json:"audience,omitempty"`
		Priority float64         `json:"priority,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.Priority = wire.Priority
	a.Audience = nil
	if len(wire.Audience) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(wire.Audience, &list); err == nil {
		a.Audience = list
		return nil
	}
	var one string
	if err := json.Unmarshal(wire.Audience, &one); err != nil {
		return err
	}
	a.Audience = []string{one}
	return nil
}

// Resource describes one item a server can serve the contents of.
type Resource struct {
	URI          string       `json:"uri"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	MimeType     string       `json:"mimeType,omitempty"`
	SizeInBytes  int64        `json:"size,omitempty"`
	Annotations  *Annotations `json:"annotations,omitempty"`
	Meta         Meta         `json:"_meta,omitempty"`
}

// UnmarshalJSON normalizes URI the way NewResource does, so a Resource
// decoded off the wire (a resources/list result, say) carries the same
// canonical URI a handler would get from NewResource.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI         json.RawMessage `json:"uri"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		MimeType    string          `json:"mimeType,omitempty"`
		SizeInBytes int64           `json:"size,omitempty"`
		Annotations *Annotations    `json:"annotations,omitempty"`
		Meta        Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &r.URI); err != nil {
		return err
	}
	r.Name = wire.Name
	r.Description = wire.Description
	r.MimeType = wire.MimeType
	r.SizeInBytes = wire.SizeInBytes
	r.Annotations = wire.Annotations
	r.Meta = wire.Meta
	return nil
}

// NewResource constructs a Resource, normalizing uri the way the wire
// form requires. It returns an error if uri is not a valid URI.
func NewResource(uri, name string) (*Resource, error) {
	norm, err := NormalizeURI(uri)
	if err != nil {
		return nil, err
	}
	return &Resource{URI: norm, Name: name}, nil
}

// ResourceTemplate describes a parameterized family of resources.
type ResourceTemplate struct {
	URITemplate string       `json:"uriTemplate"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Meta        Meta         `json:"_meta,omitempty"`
}

// UnmarshalJSON normalizes URITemplate the same way Resource normalizes
// URI. Templates contain "{var}" placeholders that url.Parse tolerates
// in the path/query/fragment, so the same normalization rule applies
// unchanged.
func (rt *ResourceTemplate) UnmarshalJSON(data []byte) error {
	var wire struct {
		URITemplate json.RawMessage `json:"uriTemplate"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		MimeType    string          `json:"mimeType,omitempty"`
		Annotations *Annotations    `json:"annotations,omitempty"`
		Meta        Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URITemplate, &rt.URITemplate); err != nil {
		return err
	}
	rt.Name = wire.Name
	rt.Description = wire.Description
	rt.MimeType = wire.MimeType
	rt.Annotations = wire.Annotations
	rt.Meta = wire.Meta
	return nil
}

// ListResourcesRequest pages through a server's available resources.
type ListResourcesRequest struct {
	Cursor string `json:"cursor,omitempty"`
	Meta   Meta   `json:"_meta,omitempty"`
}

func (ListResourcesRequest) Method() string { return "resources/list" }

// ListResourcesResult is one page of resources.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
	Meta       Meta       `json:"_meta,omitempty"`
}

// ListResourceTemplatesRequest pages through a server's resource
// templates.
type ListResourceTemplatesRequest struct {
	Cursor string `json:"cursor,omitempty"`
	Meta   Meta   `json:"_meta,omitempty"`
}

func (ListResourceTemplatesRequest) Method() string { return "resources/templates/list" }

// ListResourceTemplatesResult is one page of resource templates.
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
	Meta              Meta               `json:"_meta,omitempty"`
}

// ReadResourceRequest fetches one resource's contents by URI.
type ReadResourceRequest struct {
	URI  string `json:"uri"`
	Meta Meta   `json:"_meta,omitempty"`
}

func (ReadResourceRequest) Method() string { return "resources/read" }

// UnmarshalJSON rejects a malformed URI at decode time, so a client
// sending an invalid resources/read URI gets an INVALID_PARAMS error
// instead of reaching a handler unchecked.
func (r *ReadResourceRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI  json.RawMessage `json:"uri"`
		Meta Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &r.URI); err != nil {
		return err
	}
	r.Meta = wire.Meta
	return nil
}

// TextResourceContents is the text variant of a resource's body.
type TextResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// UnmarshalJSON normalizes URI the way Resource does.
func (c *TextResourceContents) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI      json.RawMessage `json:"uri"`
		MimeType string          `json:"mimeType,omitempty"`
		Text     string          `json:"text"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &c.URI); err != nil {
		return err
	}
	c.MimeType = wire.MimeType
	c.Text = wire.Text
	return nil
}

// BlobResourceContents is the binary variant of a resource's body,
// base64-encoded.
type BlobResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Blob     string `json:"blob"`
}

// UnmarshalJSON normalizes URI the way Resource does.
func (c *BlobResourceContents) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI      json.RawMessage `json:"uri"`
		MimeType string          `json:"mimeType,omitempty"`
		Blob     string          `json:"blob"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &c.URI); err != nil {
		return err
	}
	c.MimeType = wire.MimeType
	c.Blob = wire.Blob
	return nil
}

// ReadResourceResult carries the contents returned for a
// ReadResourceRequest. Each element of Contents is either a
// TextResourceContents or a BlobResourceContents, so this field is
// untyped on the wire and resolved by the caller based on whether
// "text" or "blob" is present.
type ReadResourceResult struct {
	Contents []json.RawMessage `json:"contents"`
	Meta     Meta              `json:"_meta,omitempty"`
}

// SubscribeRequest asks the server to notify the client when the named
// resource changes.
type SubscribeRequest struct {
	URI  string `json:"uri"`
	Meta Meta   `json:"_meta,omitempty"`
}

func (SubscribeRequest) Method() string { return "resources/subscribe" }

// UnmarshalJSON rejects a malformed URI at decode time.
func (r *SubscribeRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI  json.RawMessage `json:"uri"`
		Meta Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &r.URI); err != nil {
		return err
	}
	r.Meta = wire.Meta
	return nil
}

// UnsubscribeRequest cancels a prior SubscribeRequest.
type UnsubscribeRequest struct {
	URI  string `json:"uri"`
	Meta Meta   `json:"_meta,omitempty"`
}

func (UnsubscribeRequest) Method() string { return "resources/unsubscribe" }

// UnmarshalJSON rejects a malformed URI at decode time.
func (r *UnsubscribeRequest) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI  json.RawMessage `json:"uri"`
		Meta Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &r.URI); err != nil {
		return err
	}
	r.Meta = wire.Meta
	return nil
}

// ResourceUpdatedNotification reports that a subscribed resource's
// contents have changed.
type ResourceUpdatedNotification struct {
	URI  string `json:"uri"`
	Meta Meta   `json:"_meta,omitempty"`
}

func (ResourceUpdatedNotification) Method() string { return "notifications/resources/updated" }

// UnmarshalJSON rejects a malformed URI at decode time.
func (n *ResourceUpdatedNotification) UnmarshalJSON(data []byte) error {
	var wire struct {
		URI  json.RawMessage `json:"uri"`
		Meta Meta            `json:"_meta,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if err := decodeURIField(wire.URI, &n.URI); err != nil {
		return err
	}
	n.Meta = wire.Meta
	return nil
}

// ResourceListChangedNotification reports that the server's resource
// list itself has changed.
type ResourceListChangedNotification struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (ResourceListChangedNotification) Method() string {
	return "notifications/resources/list_changed"
}
