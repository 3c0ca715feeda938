// Package slots manages GPU-resident wallpaper images.
//
// A Manager owns a bounded arena of slots. Each slot holds one uploaded
// image as a hal.Texture and its view. Callers reference slots through
// Handle values and keep them alive with Pin/Unpin; a slot is reclaimed
// only when it is unpinned, the arena is at capacity and a new slot is
// needed. Unpinned slots are reclaimed least-recently-unpinned first.
//
// Uploads are deduplicated by content: uploading the same pixels twice
// returns the handle of the existing slot.
//
// Manager is not safe for concurrent use. It is owned by the render
// goroutine, which also records every draw referencing its textures.
package slots
