// Package core provides the foundational domain types shared by every layer
// of toolmesh. It defines:
//
//   - ToolDefinition (a named, schema-described capability exposed to the model)
//   - Message and Conversation (the immutable, ordered chat history)
//   - StaticRequestContext (per-conversation request data merged into dynamic tool calls)
//   - Credentials (opaque authentication material applied to outbound tool requests)
//   - The error taxonomy surfaced by a turn (NoResponseError, MalformedArgumentsError,
//     UnresolvedToolError)
//
// The package intentionally keeps implementation concerns (model providers,
// catalog backends, HTTP execution) out of scope so that higher layers can be
// swapped independently.
package core
