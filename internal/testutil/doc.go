// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing conversations, tool definitions and
// external collaborators (catalog resolvers, HTTP executors). They are not
// intended for production usage.
package testutil
