package protocol

// ProtocolVersion is the MCP protocol revision this module implements.
// InitializeRequest.ProtocolVersion is compared against the values a
// peer offers; a mismatch is reported with code.ProtocolVersionMismatch.
const ProtocolVersion = "2025-06-18"

// Implementation identifies a client or a server by name and version.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities advertises the optional features a client
// implements.
type ClientCapabilities struct {
	Roots        *RootsCapability `json:"roots,omitempty"`
	Sampling     map[string]any   `json:"sampling,omitempty"`
	Experimental map[string]any   `json:"experimental,omitempty"`
}

// RootsCapability describes client support for the roots feature.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities advertises the optional features a server
// implements.
type ServerCapabilities struct {
	Logging      map[string]any        `json:"logging,omitempty"`
	Prompts      *PromptsCapability    `json:"prompts,omitempty"`
	Resources    *ResourcesCapability  `json:"resources,omitempty"`
	Tools        *ToolsCapability      `json:"tools,omitempty"`
	Completions  map[string]any        `json:"completions,omitempty"`
	Experimental map[string]any        `json:"experimental,omitempty"`
}

type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeRequest is the first request a client sends to a server.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
	Meta            Meta               `json:"_meta,omitempty"`
}

func (InitializeRequest) Method() string { return "initialize" }

// InitializeResult answers InitializeRequest.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
	Meta            Meta               `json:"_meta,omitempty"`
}

// InitializedNotification confirms that a client has accepted the
// server's InitializeResult and the session is ready for normal use.
type InitializedNotification struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (InitializedNotification) Method() string { return "notifications/initialized" }
