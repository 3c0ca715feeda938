package moxpaper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/mox-desktop/moxpaper/internal/blur"
	"github.com/mox-desktop/moxpaper/internal/gpu"
	"github.com/mox-desktop/moxpaper/internal/mailbox"
	"github.com/mox-desktop/moxpaper/internal/sched"
	"github.com/mox-desktop/moxpaper/internal/slots"
	"github.com/mox-desktop/moxpaper/internal/transition"
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("moxpaper: engine already running")

// AcquireFunc produces a request in the background, typically by reading
// and decoding an image. ctx is cancelled when a newer request for the same
// output supersedes it.
type AcquireFunc func(ctx context.Context) (Request, error)

// Engine renders wallpapers onto outputs. Create it with New, start Run in
// its own goroutine, then drive it with the host methods, which are safe
// for concurrent use.
type Engine struct {
	device hal.Device
	queue  hal.Queue
	opts   engineOptions

	slots   *slots.Manager
	kernels *blur.Cache

	events  chan func()
	results *mailbox.Mailbox[OutputID, acquisition]

	// Owned by the Run goroutine.
	outputs map[OutputID]*output
	retry   bool
	streams uint64

	fetchMu sync.Mutex
	fetches map[OutputID]*fetchState

	baseCtx    context.Context
	cancelBase context.CancelFunc

	running      atomic.Bool
	done         chan struct{}
	closeOnce    sync.Once
	shutdownOnce sync.Once
}

// output is the render state of one output.
type output struct {
	id       OutputID
	geom     Geometry
	width    int
	height   int
	surface  Surface
	machine  *transition.Machine
	sched    *sched.Scheduler
	renderer *gpu.Renderer

	// last is the request currently shown, kept to re-fit on resize.
	last *Request
	// deferred waits for a free texture slot.
	deferred *pendingRequest

	lost        bool
	lastPresent time.Time
	frames      uint64
	lastPlan    []gpu.Pass
}

type pendingRequest struct {
	req  Request
	spec transition.Spec
}

// acquisition is a fetched request tagged with the fetch generation that
// produced it.
type acquisition struct {
	gen uint64
	req Request
}

type fetchState struct {
	gen    uint64
	cancel context.CancelFunc
}

// randSource seeds per-output random number generators.
type randSource struct {
	seed uint64
}

// New creates an engine rendering with device and queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Engine, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		device:     device,
		queue:      queue,
		opts:       o,
		slots:      slots.New(device, queue, o.slotCapacity),
		kernels:    blur.NewCache(),
		events:     make(chan func(), o.eventBuffer),
		results:    mailbox.New[OutputID, acquisition](),
		outputs:    make(map[OutputID]*output),
		fetches:    make(map[OutputID]*fetchState),
		baseCtx:    ctx,
		cancelBase: cancel,
		done:       make(chan struct{}),
	}
	slogger().Info("moxpaper: engine created",
		"slots", e.slots.Capacity(), "format", o.surfaceFormat)
	return e, nil
}

// NewFromProvider creates an engine on the device of a host GPU context,
// such as a gogpu application. The provider must expose HalDevice() and
// HalQueue() returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Engine, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	return New(device, queue, opts...)
}

// ValidateShaders compiles the engine's shaders ahead of first use so a
// host can fail early on an unsupported toolchain.
func ValidateShaders() error {
	return gpu.ValidateShaders()
}

// Run processes host events and fetched wallpapers until ctx is done or
// Close is called, then releases every GPU resource. An engine runs once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.shutdown()

	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case fn := <-e.events:
			fn()
			e.settle()
		case <-e.results.Ready():
			e.collect()
			e.settle()
		}
	}
}

// pump handles every queued event and fetched result without blocking.
func (e *Engine) pump() {
	for {
		select {
		case fn := <-e.events:
			fn()
			e.settle()
		case <-e.results.Ready():
			e.collect()
			e.settle()
		default:
			return
		}
	}
}

// Close stops Run. If Run was never started Close releases resources
// itself. Close is safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	if !e.running.Load() {
		e.shutdown()
	}
}

func (e *Engine) shutdown() {
	e.shutdownOnce.Do(func() {
		e.closeOnce.Do(func() { close(e.done) })
		e.cancelBase()
		e.results.Close()

		e.fetchMu.Lock()
		for _, st := range e.fetches {
			if st.cancel != nil {
				st.cancel()
			}
		}
		e.fetchMu.Unlock()

		for id, o := range e.outputs {
			e.release(o.machine.Reset())
			o.renderer.Destroy()
			delete(e.outputs, id)
		}
		uploads, evictions := e.slots.Stats()
		resident, unpinned := e.slots.Len(), e.slots.Unpinned()
		e.slots.Destroy()
		fetched, superseded := e.results.Stats()
		slogger().Info("moxpaper: engine stopped",
			"uploads", uploads, "evictions", evictions,
			"resident", resident, "unpinned", unpinned,
			"kernels", e.kernels.Len(),
			"fetched", fetched, "superseded", superseded)
	})
}

// post queues fn for the Run goroutine.
func (e *Engine) post(fn func()) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.events <- fn:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// AddOutput starts rendering onto surface. The output is blank until a
// wallpaper is set.
func (e *Engine) AddOutput(id OutputID, g Geometry, surface Surface) error {
	if surface == nil {
		return ErrNoSurface
	}
	return e.post(func() { e.addOutput(id, g, surface) })
}

// Configure updates an output's geometry. A changed size or scale re-fits
// and re-uploads the current wallpaper without a transition.
func (e *Engine) Configure(id OutputID, g Geometry) error {
	return e.post(func() { e.configure(id, g) })
}

// RemoveOutput stops rendering onto an output and releases its textures.
func (e *Engine) RemoveOutput(id OutputID) error {
	e.supersede(id, nil)
	return e.post(func() { e.removeOutput(id) })
}

// FrameDone reports that the compositor is ready for the output's next
// frame.
func (e *Engine) FrameDone(id OutputID) error {
	return e.post(func() { e.frameDone(id) })
}

// SetWallpaper shows req on an output. It supersedes any acquisition in
// flight for the output.
func (e *Engine) SetWallpaper(id OutputID, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	e.supersede(id, nil)
	return e.post(func() { e.setWallpaper(id, req) })
}

// Fetch runs acquire in a new goroutine and shows its request on the
// output when it completes. A later Fetch or SetWallpaper for the same
// output cancels it and discards its result. Failed acquisitions keep the
// current wallpaper.
func (e *Engine) Fetch(id OutputID, acquire AcquireFunc) error {
	if acquire == nil {
		return errors.New("moxpaper: nil AcquireFunc")
	}
	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	ctx, cancel := context.WithCancel(e.baseCtx)
	gen := e.supersede(id, cancel)
	go func() {
		defer cancel()
		req, err := acquire(ctx)
		switch {
		case ctx.Err() != nil:
			slogger().Debug("moxpaper: acquisition superseded", "output", id, "gen", gen)
		case err != nil:
			slogger().Warn("moxpaper: acquisition failed", "output", id, "err", err)
		default:
			e.results.Put(id, acquisition{gen: gen, req: req})
		}
	}()
	return nil
}

// supersede starts a new acquisition generation for id, cancelling the
// previous one, and returns it. cancel belongs to the new generation.
func (e *Engine) supersede(id OutputID, cancel context.CancelFunc) uint64 {
	e.fetchMu.Lock()
	defer e.fetchMu.Unlock()
	st, ok := e.fetches[id]
	if !ok {
		st = &fetchState{}
		e.fetches[id] = st
	}
	if st.cancel != nil {
		st.cancel()
	}
	st.gen++
	st.cancel = cancel
	return st.gen
}

func (e *Engine) currentGen(id OutputID) uint64 {
	e.fetchMu.Lock()
	defer e.fetchMu.Unlock()
	if st, ok := e.fetches[id]; ok {
		return st.gen
	}
	return 0
}

// collect applies fetched requests that are still current.
func (e *Engine) collect() {
	for _, en := range e.results.Drain() {
		if en.Value.gen != e.currentGen(en.Key) {
			slogger().Debug("moxpaper: stale acquisition discarded",
				"output", en.Key, "gen", en.Value.gen)
			continue
		}
		if err := en.Value.req.validate(); err != nil {
			slogger().Warn("moxpaper: fetched request rejected", "output", en.Key, "err", err)
			continue
		}
		e.setWallpaper(en.Key, en.Value.req)
	}
}

func (e *Engine) now() time.Time {
	return e.opts.clock()
}

func (e *Engine) newRand() *rand.Rand {
	if e.opts.rng == nil {
		return nil
	}
	e.streams++
	return rand.New(rand.NewPCG(e.opts.rng.seed, e.streams)) //nolint:gosec // visual randomness only
}

func (e *Engine) addOutput(id OutputID, g Geometry, surface Surface) {
	if _, ok := e.outputs[id]; ok {
		slogger().Warn("moxpaper: add output", "output", id, "err", ErrOutputExists)
		return
	}
	g, bad := g.normalized()
	if bad {
		slogger().Warn("moxpaper: degenerate output geometry clamped", "output", id)
	}
	o := &output{
		id:       id,
		geom:     g,
		surface:  surface,
		machine:  transition.NewMachine(e.newRand()),
		sched:    sched.New(),
		renderer: gpu.NewRenderer(e.device, e.queue, e.opts.surfaceFormat, e.kernels),
	}
	if e.opts.submitTimeout > 0 {
		o.renderer.SetSubmitTimeout(e.opts.submitTimeout)
	}
	o.width, o.height = g.Physical()
	e.outputs[id] = o
	slogger().Info("moxpaper: output added",
		"output", id, "width", o.width, "height", o.height,
		"projection", g.Projection, "format", o.renderer.Format())
	e.requestRedraw(o)
}

func (e *Engine) configure(id OutputID, g Geometry) {
	o, ok := e.outputs[id]
	if !ok {
		slogger().Warn("moxpaper: configure", "output", id, "err", ErrUnknownOutput)
		return
	}
	g, bad := g.normalized()
	if bad {
		slogger().Warn("moxpaper: degenerate output geometry clamped", "output", id)
	}
	resized := g.Width != o.geom.Width || g.Height != o.geom.Height || g.Scale != o.geom.Scale
	o.geom = g
	o.width, o.height = g.Physical()
	o.lost = false

	if resized && o.last != nil {
		slogger().Debug("moxpaper: re-fitting wallpaper", "output", id, "width", o.width, "height", o.height)
		e.apply(o, *o.last, transition.Spec{Style: transition.StyleNone})
	}
	e.requestRedraw(o)
}

func (e *Engine) removeOutput(id OutputID) {
	o, ok := e.outputs[id]
	if !ok {
		slogger().Warn("moxpaper: remove output", "output", id, "err", ErrUnknownOutput)
		return
	}
	e.release(o.machine.Reset())
	o.renderer.Destroy()
	delete(e.outputs, id)
	// The fetch state outlives the output so a re-added output keeps
	// counting generations and late results from before the removal stay
	// stale.
	slogger().Info("moxpaper: output removed", "output", id)
}

func (e *Engine) setWallpaper(id OutputID, req Request) {
	o, ok := e.outputs[id]
	if !ok {
		slogger().Warn("moxpaper: set wallpaper", "output", id, "err", ErrUnknownOutput)
		return
	}
	spec := e.opts.defaultTransition
	if req.Transition != nil {
		spec = *req.Transition
	}
	e.apply(o, req, spec.internal())
}

// apply uploads req and hands the resulting layer to the output's
// transition machine. Requests that find every slot pinned wait in
// o.deferred.
func (e *Engine) apply(o *output, req Request, spec transition.Spec) {
	layer, err := e.prepare(o, &req)
	if errors.Is(err, slots.ErrCapacityExceeded) {
		slogger().Warn("moxpaper: request deferred", "output", o.id, "err", err)
		o.deferred = &pendingRequest{req: req, spec: spec}
		return
	}
	if err != nil {
		slogger().Error("moxpaper: set wallpaper", "output", o.id, "err", err)
		return
	}
	o.deferred = nil

	if cur, ok := o.machine.Current(); ok && cur == layer {
		slogger().Debug("moxpaper: wallpaper unchanged", "output", o.id)
		o.last = &req
		return
	}
	if err := e.slots.Pin(layer.Slot); err != nil {
		slogger().Error("moxpaper: pin slot", "output", o.id, "slot", layer.Slot, "err", err)
		return
	}
	e.release(o.machine.Set(layer, spec, e.now()))
	if o.machine.Active() {
		o.sched.SetFPS(spec.FPS)
	} else {
		o.sched.SetFPS(0)
	}
	o.last = &req
	slogger().Info("moxpaper: wallpaper set",
		"output", o.id, "slot", layer.Slot, "style", o.machine.Style(), "duration", spec.Duration)
	e.requestRedraw(o)
}

// release unpins the slots of layers the machine let go of.
func (e *Engine) release(layers []transition.Layer) {
	for _, l := range layers {
		if !l.Slot.Valid() {
			continue
		}
		if err := e.slots.Unpin(l.Slot); err != nil {
			slogger().Warn("moxpaper: unpin slot", "slot", l.Slot, "err", err)
			continue
		}
		e.retry = true
	}
}

// settle retries deferred requests after slots were released.
func (e *Engine) settle() {
	for e.retry {
		e.retry = false
		for _, o := range e.outputs {
			if o.deferred == nil {
				continue
			}
			p := o.deferred
			o.deferred = nil
			e.apply(o, p.req, p.spec)
		}
	}
}

func (e *Engine) requestRedraw(o *output) {
	if o.lost {
		return
	}
	if o.sched.RequestRedraw() {
		o.surface.RequestFrame()
	}
}

func (e *Engine) frameDone(id OutputID) {
	o, ok := e.outputs[id]
	if !ok {
		slogger().Debug("moxpaper: frame callback for unknown output", "output", id)
		return
	}
	if o.lost {
		return
	}

	now := e.now()
	d, dt := o.sched.OnFrame(now)
	switch d {
	case sched.Skip:
		return
	case sched.Defer:
		o.surface.RequestFrame()
		return
	}

	released, active := o.machine.Advance(now)
	e.release(released)
	if !active {
		o.sched.SetFPS(0)
	}

	if err := e.draw(o); err != nil {
		e.loseSurface(o, err)
		return
	}
	o.lastPresent = now
	slogger().Debug("moxpaper: frame presented",
		"output", id, "dt", dt, "progress", o.machine.Progress(), "passes", len(o.lastPlan))

	if active {
		e.requestRedraw(o)
	}
}

func (e *Engine) draw(o *output) error {
	frame := e.buildFrame(o)
	view, err := o.surface.AcquireView()
	if err != nil {
		return fmt.Errorf("acquire view: %w", err)
	}
	frame.Target = view
	plan, err := o.renderer.Render(frame)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	o.lastPlan = plan
	if err := o.surface.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	o.frames++
	return nil
}

// loseSurface resets an output whose surface failed. Its layers are
// released and it restarts blank once the surface is reacquired.
func (e *Engine) loseSurface(o *output, cause error) {
	slogger().Warn("moxpaper: output surface lost", "output", o.id, "err", cause)
	e.release(o.machine.Reset())
	o.sched.Reset()
	o.sched.SetFPS(0)
	o.last = nil
	o.deferred = nil
	o.lastPlan = nil
	o.lost = true

	r, ok := o.surface.(Reacquirer)
	if !ok {
		return
	}
	if err := r.Reacquire(); err != nil {
		slogger().Error("moxpaper: reacquire surface", "output", o.id, "err", err)
		return
	}
	o.lost = false
	slogger().Info("moxpaper: surface reacquired", "output", o.id)
	e.requestRedraw(o)
}
