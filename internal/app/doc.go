// Package app provides the application service layer.
//
// Game runs the player-facing use cases (create, vote, fetch post, fetch stats),
// Revealer closes a post and scores everyone involved, and Sweeper forces the
// reveal of posts that outlived the reveal window. Depends on domain
// interfaces, not concrete implementations.
package app
