// Package profiles resolves effective tool permissions for OpenClaw instances
// and manages their on-disk per-profile configuration files.
//
// Permission resolution starts from a named base tool profile (or the full
// catalog), unions in allow entries and subtracts deny entries last, with
// group references expanded to their member tools. Deny always wins.
package profiles
