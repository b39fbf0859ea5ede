// Package level loads level configurations.
//
// Levels are written in CUE and unified with the #Level schema in
// schema.cue, which supplies defaults (tolerance 150, start pose at the
// canvas centre, empty-construct checking on). A directory loaded with
// LoadDir holds one CUE package whose top-level "level" struct maps level
// ids to entries; the same layout is embedded for Builtin.
//
// Schema violations and semantic problems found by Config.Validate are
// CONFIGURATION errors and block entering the level.
package level
