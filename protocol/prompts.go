package protocol

// PromptArgument describes one named argument a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt is a server-defined reusable prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ListPromptsRequest pages through a server's available prompts.
type ListPromptsRequest struct {
	Cursor string `json:"cursor,omitempty"`
	Meta   Meta   `json:"_meta,omitempty"`
}

func (ListPromptsRequest) Method() string { return "prompts/list" }

// ListPromptsResult is one page of prompts.
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
	Meta       Meta     `json:"_meta,omitempty"`
}

// GetPromptRequest resolves a named prompt with concrete argument
// values.
type GetPromptRequest struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
	Meta      Meta              `json:"_meta,omitempty"`
}

func (GetPromptRequest) Method() string { return "prompts/get" }

// PromptMessage is one turn of a resolved prompt.
type PromptMessage struct {
	Role    string        `json:"role"`
	Content ContentBlock  `json:"content"`
}

// GetPromptResult is a fully-rendered prompt.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
	Meta        Meta            `json:"_meta,omitempty"`
}

// PromptListChangedNotification tells a client the server's available
// prompts have changed and should be re-listed.
type PromptListChangedNotification struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (PromptListChangedNotification) Method() string { return "notifications/prompts/list_changed" }
