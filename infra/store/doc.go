// Package store persists run results to a local SQLite database so that
// several runs can be compared after the fact.
package store
