// Package utils provides small text helpers shared by the report and the CLI:
// fixed-width columns, path shortening and interactive answer parsing.
package utils
