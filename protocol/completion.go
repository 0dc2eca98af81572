package protocol

// CompleteReference identifies the prompt or resource template a
// completion request is narrowing.
type CompleteReference struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompleteArgument is the partially-typed argument a client wants
// completions for.
type CompleteArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteRequest asks a server for completions of an argument value.
type CompleteRequest struct {
	Ref      CompleteReference `json:"ref"`
	Argument CompleteArgument  `json:"argument"`
	Meta     Meta              `json:"_meta,omitempty"`
}

func (CompleteRequest) Method() string { return "completion/complete" }

// CompleteResult carries the candidate completions.
type CompleteResult struct {
	Completion CompletionValues `json:"completion"`
	Meta       Meta             `json:"_meta,omitempty"`
}

// CompletionValues is the body of a CompleteResult.
type CompletionValues struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}
