package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davenpi/conduit-mcp/code"
	"github.com/davenpi/conduit-mcp/protocol"
	"github.com/davenpi/conduit-mcp/server"
)

// registry holds the tools, resources, and prompts this server exposes.
// It exists to give the wiring in main.go something concrete to route
// requests to; a real deployment would back this with application data
// instead of the fixed examples below.
type registry struct {
	tools     []protocol.Tool
	resources []protocol.Resource
	prompts   []protocol.Prompt
}

func newRegistry() *registry {
	echoTool := protocol.Tool{
		Name:        "echo",
		Description: "Echoes its input argument back as text.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []any{"text"},
		},
		Annotations: &protocol.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}

	clock, err := protocol.NewResource("conduit://time", "Current time")
	if err != nil {
		panic(err) // the literal above is always a valid URI
	}
	clock.MimeType = "text/plain"
	clock.Description = "The server's current time, in RFC 3339."

	greeting := protocol.Prompt{
		Name:        "greet",
		Description: "A short greeting for the named person.",
		Arguments:   []protocol.PromptArgument{{Name: "name", Required: true}},
	}

	return &registry{
		tools:     []protocol.Tool{echoTool},
		resources: []protocol.Resource{*clock},
		prompts:   []protocol.Prompt{greeting},
	}
}

func (r *registry) handlePing(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	return protocol.EmptyResult{}, nil
}

func (r *registry) handleListTools(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	return protocol.ListToolsResult{Tools: r.tools}, nil
}

func (r *registry) handleCallTool(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	call, ok := req.(protocol.CallToolRequest)
	if !ok {
		return nil, code.Errorf(code.InvalidParams, "unexpected params type")
	}
	if call.Name != "echo" {
		return nil, code.Errorf(code.InvalidParams, "unknown tool %q", call.Name)
	}
	text, _ := call.Arguments["text"].(string)
	return protocol.CallToolResult{
		Content: []protocol.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func (r *registry) handleListResources(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	return protocol.ListResourcesResult{Resources: r.resources}, nil
}

func (r *registry) handleReadResource(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	read, ok := req.(protocol.ReadResourceRequest)
	if !ok {
		return nil, code.Errorf(code.InvalidParams, "unexpected params type")
	}
	if read.URI != "conduit://time" {
		return nil, code.Errorf(code.ResourceNotFound, "no such resource: %q", read.URI)
	}
	contents := protocol.TextResourceContents{
		URI:      read.URI,
		MimeType: "text/plain",
		Text:     time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := marshalContents(contents)
	if err != nil {
		return nil, code.Errorf(code.InternalError, "marshal resource contents: %v", err)
	}
	return protocol.ReadResourceResult{Contents: raw}, nil
}

func (r *registry) handleListPrompts(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	return protocol.ListPromptsResult{Prompts: r.prompts}, nil
}

func (r *registry) handleGetPrompt(ctx context.Context, id server.ClientID, req protocol.Method) (any, *code.Error) {
	get, ok := req.(protocol.GetPromptRequest)
	if !ok {
		return nil, code.Errorf(code.InvalidParams, "unexpected params type")
	}
	if get.Name != "greet" {
		return nil, code.Errorf(code.InvalidParams, "unknown prompt %q", get.Name)
	}
	name := get.Arguments["name"]
	if name == "" {
		name = "there"
	}
	return protocol.GetPromptResult{
		Messages: []protocol.PromptMessage{{
			Role:    "user",
			Content: protocol.ContentBlock{Type: "text", Text: fmt.Sprintf("Say hello to %s.", name)},
		}},
	}, nil
}

func marshalContents(v any) ([]json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []json.RawMessage{raw}, nil
}
