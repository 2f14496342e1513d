// Package sqlexec executes named statements against a bun database.
//
// Statement SQL uses #{name} placeholders that are bound from a map, a struct
// or a single scalar. Each Executor lazily opens one transaction on first use
// and keeps it until Commit, Rollback or Close.
package sqlexec
