// Package config defines configuration structures for the noway CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (NOWAY_ prefix)
//   - YAML configuration file
//
// Precedence is flags over environment over file over defaults; the cmd
// package applies it by loading the file first, then LoadFromEnv, then
// merging flag values on top.
package config
