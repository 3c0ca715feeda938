// Package moxpaper is the rendering and animation core of a wallpaper
// daemon: one image per output, animated transitions between wallpapers,
// rounded-corner and container clipping, and Gaussian blur, all drawn on
// the GPU through gogpu/wgpu.
//
// An Engine owns the GPU device, a shared arena of texture slots and one
// render state per output. Host integrations feed it three kinds of input:
//
//   - geometry: AddOutput, Configure and RemoveOutput,
//   - frame callbacks: FrameDone, called when the compositor is ready for
//     the next frame of an output,
//   - wallpapers: SetWallpaper with decoded pixels, or Fetch with a
//     function that acquires them in the background.
//
// All state is mutated by the single goroutine running Engine.Run. Host
// calls only post messages to it and are safe for concurrent use.
//
// Example:
//
//	eng, err := moxpaper.New(device, queue)
//	if err != nil {
//	    return err
//	}
//	go eng.Run(ctx)
//
//	eng.AddOutput("DP-1", moxpaper.Geometry{Width: 1920, Height: 1080, Scale: 1}, surface)
//	eng.SetWallpaper("DP-1", moxpaper.Request{
//	    Pixels:     moxpaper.Pixels{Data: rgba, Width: w, Height: h},
//	    Transition: &moxpaper.TransitionSpec{Style: moxpaper.StyleFade, Duration: time.Second},
//	})
//
// The surface asks the compositor for a frame callback whenever the engine
// calls Surface.RequestFrame, and forwards the callback to Engine.FrameDone.
package moxpaper
