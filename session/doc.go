// Package session keeps conversations of a running process in memory and
// serializes turns per conversation. A turn takes the conversation's lock,
// reads the current value, runs and stores the result; turns on distinct
// conversations proceed in parallel.
//
// Nothing is persisted. A restarted process starts with no conversations.
package session
