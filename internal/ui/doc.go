// Package ui implements an interactive sync monitor using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow:
//  1. [UserListView] : Browse users with their source URL and last sync time
//  2. [ConfirmView] : Confirm a sync of one user, or of every user with a source URL
//  3. [SyncView] : Follow the job's progress updates as they arrive
//  4. [ResultView] : Show one outcome line per job
//
// The (view) [Model] implements the standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through the dispatcher's progress channel, which is drained without blocking the jobs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, a, esc, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
