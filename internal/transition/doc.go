// Package transition holds the per-output wallpaper state machine.
//
// A Machine is Blank, Static (one visible layer) or Transitioning between
// an outgoing and an incoming layer. Setting a layer on a blank machine
// shows it immediately; setting one on a static machine starts a timed
// transition whose progress is advanced from frame timestamps. When the
// transition completes the outgoing layer is handed back to the caller
// exactly once so it can release whatever the layer holds.
//
// Styles decide how progress maps onto each layer's Appearance: opacity,
// scale, rotation and a clip rectangle relative to the layer's container.
// Progress is shaped by a cubic-bezier Easing before it reaches a style.
package transition
