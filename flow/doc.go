// Package flow holds the per-turn steps between the tool window and the
// final conversation: rewriting the conversation around a fresh system
// prompt, invoking the completion model and dispatching the tool call it
// may return.
//
// Every step takes and returns immutable core.Conversation values; nothing in
// this package keeps state between turns.
package flow
