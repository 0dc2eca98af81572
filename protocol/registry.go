package protocol

import (
	"encoding/json"

	"github.com/davenpi/conduit-mcp/code"
)

// decoderFunc unmarshals a request or notification's params into its
// typed Method value.
type decoderFunc func(params json.RawMessage) (Method, *code.Error)

// decode builds a decoderFunc for a concrete Method-implementing type.
func decode[T Method]() decoderFunc {
	return func(params json.RawMessage) (Method, *code.Error) {
		var v T
		if len(params) > 0 && !isNullRaw(params) {
			if err := json.Unmarshal(params, &v); err != nil {
				return nil, code.Errorf(code.InvalidParams, "invalid params: %v", err)
			}
		}
		return v, nil
	}
}

// clientRequestMethods are requests a client may send to a server.
var clientRequestMethods = map[string]decoderFunc{
	"ping":                      decode[PingRequest](),
	"initialize":                decode[InitializeRequest](),
	"completion/complete":       decode[CompleteRequest](),
	"logging/setLevel":          decode[SetLevelRequest](),
	"prompts/get":               decode[GetPromptRequest](),
	"prompts/list":              decode[ListPromptsRequest](),
	"resources/list":            decode[ListResourcesRequest](),
	"resources/templates/list":  decode[ListResourceTemplatesRequest](),
	"resources/read":            decode[ReadResourceRequest](),
	"resources/subscribe":       decode[SubscribeRequest](),
	"resources/unsubscribe":     decode[UnsubscribeRequest](),
	"tools/call":                decode[CallToolRequest](),
	"tools/list":                decode[ListToolsRequest](),
}

// serverRequestMethods are requests a server may send to a client.
var serverRequestMethods = map[string]decoderFunc{
	"ping":                   decode[PingRequest](),
	"sampling/createMessage": decode[CreateMessageRequest](),
	"roots/list":             decode[ListRootsRequest](),
}

// clientNotificationMethods are notifications a client may send to a
// server.
var clientNotificationMethods = map[string]decoderFunc{
	"notifications/cancelled":          decode[CancelledNotification](),
	"notifications/progress":           decode[ProgressNotification](),
	"notifications/initialized":        decode[InitializedNotification](),
	"notifications/roots/list_changed": decode[RootsListChangedNotification](),
}

// serverNotificationMethods are notifications a server may send to a
// client.
var serverNotificationMethods = map[string]decoderFunc{
	"notifications/cancelled":              decode[CancelledNotification](),
	"notifications/progress":               decode[ProgressNotification](),
	"notifications/message":                decode[LoggingMessageNotification](),
	"notifications/resources/updated":      decode[ResourceUpdatedNotification](),
	"notifications/resources/list_changed": decode[ResourceListChangedNotification](),
	"notifications/tools/list_changed":     decode[ToolListChangedNotification](),
	"notifications/prompts/list_changed":   decode[PromptListChangedNotification](),
}

var requestMethods = mergeDecoders(clientRequestMethods, serverRequestMethods)
var notificationMethods = mergeDecoders(clientNotificationMethods, serverNotificationMethods)

func mergeDecoders(maps ...map[string]decoderFunc) map[string]decoderFunc {
	out := make(map[string]decoderFunc)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// KnownRequestMethods lists every request method name this registry can
// decode, client-to-server and server-to-client combined.
func KnownRequestMethods() []string {
	return methodNames(requestMethods)
}

// KnownNotificationMethods lists every notification method name this
// registry can decode.
func KnownNotificationMethods() []string {
	return methodNames(notificationMethods)
}

func methodNames(m map[string]decoderFunc) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
