// Package confloader provides configuration loading mechanism.
//
// This package implements a flexible configuration loader that supports
// multiple sources using koanf as the underlying library.
//
// Features:
//
//   - Multiple Sources: YAML files, environment variables, maps
//   - Type Safety: Unmarshaling into typed structs
//   - Defaults: fields already set in the target keep their values for
//     keys no source provides
//
// Priority applied by Loader.Load (highest to lowest):
//
//  1. Environment variables
//  2. Configuration file
//  3. Values already set in the target
//
// Command-line flags are not read by this package; LoadMap loads values
// from a map and is not called by Load.
//
// @design DS-0502
// @adr AD-0501
package confloader
