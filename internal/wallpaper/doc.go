// Package wallpaper defines the core types and interfaces shared by the wallpaper
// fetch pipeline: search sources, asset processors, blob stores and the small
// plumbing abstractions (clock, hasher, ID generator) that make them testable.
package wallpaper
