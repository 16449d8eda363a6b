//go:build tools

package tools

// This file tracks CLI tool dependencies.
// It is not compiled into the binary.
//
// - github.com/pressly/goose/v3/cmd/goose: `tool` directive in go.mod,
//   run as `go tool goose -dir migrations postgres "$DATABASE_DSN" status`
// - github.com/matryer/moq: regenerates the *_mock_test.go files
//   (`go run github.com/matryer/moq@latest` via the go:generate lines)
