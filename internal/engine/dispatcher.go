package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-noor/internal/config"
)

// Notifier shows a visual notification.
type Notifier interface {
	// RequestPermission asks the platform for permission to notify.
	RequestPermission(ctx context.Context) error
	Notify(ctx context.Context, title, body string) error
}

// Vibrator fires a haptic pattern of alternating on/off durations.
type Vibrator interface {
	Vibrate(ctx context.Context, pattern []time.Duration) error
}

// AudioSink plays the adhan for a dispatch.
type AudioSink interface {
	PlayDispatch(ctx context.Context, voiceID string) error
}

// NopVibrator is the haptic channel for platforms without one.
type NopVibrator struct{}

func (NopVibrator) Vibrate(context.Context, []time.Duration) error { return ErrUnsupported }

// State is the dispatcher lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateDispatching:
		return "dispatching"
	default:
		return "idle"
	}
}

// Dispatcher fires the adhan channels when the wall clock reaches an
// enabled prayer time. All scheduling state lives on a single goroutine:
// settings updates are queued and applied between ticks, never during one.
type Dispatcher struct {
	Source   TableSource
	Clock    Clock
	Notifier Notifier
	Vibrator Vibrator
	Audio    AudioSink
	Interval time.Duration

	// FormatMessage allows the UI to inject localized notification text.
	FormatMessage func(p Prayer, loc Location) (title, body string)

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopping chan struct{} // done of a loop Disarm is waiting on
	updates  chan Settings
	audio    sync.WaitGroup

	state          atomic.Int32
	notifyDisabled atomic.Bool

	// Owned by the loop goroutine once running.
	settings Settings
	ledger   Ledger
	tracker  *tableTracker
}

// NewDispatcher builds an idle dispatcher.
func NewDispatcher(src TableSource, clock Clock, n Notifier, v Vibrator, a AudioSink) *Dispatcher {
	return &Dispatcher{
		Source:   src,
		Clock:    clock,
		Notifier: n,
		Vibrator: v,
		Audio:    a,
		Interval: config.DispatchInterval,
		updates:  make(chan Settings, config.ChannelBufferSize),
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// NotificationsEnabled reports whether the visual channel is usable.
func (d *Dispatcher) NotificationsEnabled() bool {
	return d.Notifier != nil && !d.notifyDisabled.Load()
}

// Arm starts the dispatch loop for s. The loop runs until Disarm is called
// or ctx is cancelled. Arming an armed dispatcher applies s as an update.
// Arming during a Disarm waits for the old loop to exit first.
// A denied notification permission disables that channel only.
func (d *Dispatcher) Arm(ctx context.Context, s Settings) error {
	if s.Location == nil || !s.Location.Valid() {
		return ErrNoLocation
	}
	s = s.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()

	for d.stopping != nil {
		stopping := d.stopping
		d.mu.Unlock()
		<-stopping
		d.mu.Lock()
		if d.stopping == stopping {
			d.stopping = nil
		}
	}

	if d.runningLocked() {
		d.queueLocked(s)
		return nil
	}

	d.requestPermission(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.settings = s
	d.ledger.Reset()
	d.tracker = newTableTracker(d.Source, s)
	d.drainLocked()
	d.state.Store(int32(StateArmed))

	slog.Info(config.MsgDispatcherArm,
		config.LogKeyComponent, config.CompDispatcher,
		config.LogKeyLocation, s.Location.DisplayName(),
		config.LogKeyInterval, d.interval().String())

	go d.run(loopCtx, d.done)
	return nil
}

// Reconfigure queues s for the running loop. It is a no-op when idle.
func (d *Dispatcher) Reconfigure(s Settings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runningLocked() {
		d.queueLocked(s.Clone())
	}
}

// Disarm stops the loop and waits for it to exit, including any audio
// dispatch still in flight. Safe to call repeatedly.
func (d *Dispatcher) Disarm() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	if cancel != nil {
		d.stopping = done
	}
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	d.mu.Lock()
	if d.stopping == done {
		d.stopping = nil
	}
	d.mu.Unlock()
}

// RetryPermissions asks for notification permission again and re-enables
// the visual channel on success.
func (d *Dispatcher) RetryPermissions(ctx context.Context) error {
	if d.Notifier == nil {
		return ErrUnsupported
	}
	err := d.Notifier.RequestPermission(ctx)
	d.notifyDisabled.Store(err != nil)
	return err
}

func (d *Dispatcher) requestPermission(ctx context.Context) {
	if d.Notifier == nil {
		return
	}
	log := slog.With(config.LogKeyComponent, config.CompDispatcher)
	if err := d.Notifier.RequestPermission(ctx); err != nil {
		d.notifyDisabled.Store(true)
		log.Warn(config.MsgPermissionDeny, config.LogKeyError, err)
		return
	}
	d.notifyDisabled.Store(false)
	log.Debug(config.MsgPermissionOK)
}

func (d *Dispatcher) runningLocked() bool {
	if d.done == nil {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// queueLocked keeps only the latest pending update.
func (d *Dispatcher) queueLocked(s Settings) {
	d.drainLocked()
	d.updates <- s
}

func (d *Dispatcher) drainLocked() {
	select {
	case <-d.updates:
	default:
	}
}

func (d *Dispatcher) interval() time.Duration {
	if d.Interval <= 0 {
		return config.DispatchInterval
	}
	return d.Interval
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		d.audio.Wait()
		d.mu.Lock()
		if d.done == nil || d.done == done {
			d.state.Store(int32(StateIdle))
		}
		d.mu.Unlock()
	}()

	ticker := time.NewTicker(d.interval())
	defer ticker.Stop()

	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info(config.MsgDispatcherStop, config.LogKeyComponent, config.CompDispatcher)
			return
		case s := <-d.updates:
			d.apply(s)
		case <-ticker.C:
			// An update that raced the ticker is applied first.
			select {
			case s := <-d.updates:
				d.apply(s)
			default:
			}
			d.tick(ctx)
		}
	}
}

// apply installs new settings. A location or calculation change clears the
// ledger and forces a table refresh; notification toggles and voice do not.
func (d *Dispatcher) apply(s Settings) {
	if !d.settings.SameSchedule(s) {
		d.ledger.Reset()
		d.tracker.reset(s)
		slog.Info(config.MsgDispatcherReset, config.LogKeyComponent, config.CompDispatcher)
	}
	d.settings = s
}

// tick checks the current minute against the table and dispatches every
// enabled prayer whose time it is, once. Errors are logged, never returned.
func (d *Dispatcher) tick(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompDispatcher)

	defer func() {
		if r := recover(); r != nil {
			log.Error(config.ErrTickPanic, config.LogKeyError, fmt.Sprint(r))
		}
	}()

	if ctx.Err() != nil {
		return
	}

	now := d.Clock.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, config.FetchTimeout)
	table, err := d.tracker.today(fetchCtx, now)
	cancel()

	// A refresh that completes after Disarm must not dispatch.
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Warn(config.MsgTickSkipped, config.LogKeyError, err)
		return
	}

	local := d.tracker.local(now)
	minute := MinuteOf(local)
	date := CivilDate(local)
	for _, p := range NotifiablePrayers {
		if !d.settings.Enabled(p) {
			continue
		}
		t, ok := table.Times[p]
		if !ok || t != minute {
			continue
		}
		key := DedupKey{Date: date, Prayer: p, Time: t}
		if d.ledger.Seen(key) {
			continue
		}
		d.ledger.Mark(key)
		d.dispatch(ctx, p, t)
	}
}

// dispatch fans out to every channel. A failing channel never blocks the
// others, and the ledger entry stays marked whatever the outcome.
func (d *Dispatcher) dispatch(ctx context.Context, p Prayer, t TimeOfDay) {
	d.state.Store(int32(StateDispatching))
	defer d.state.Store(int32(StateArmed))

	loc := Location{}
	if d.settings.Location != nil {
		loc = *d.settings.Location
	}

	log := slog.With(
		config.LogKeyComponent, config.CompDispatcher,
		config.LogKeyPrayer, string(p),
		config.LogKeyTime, t.String(),
	)
	log.Info(config.MsgDispatch)

	if d.NotificationsEnabled() {
		title, body := d.message(p, loc)
		if err := d.Notifier.Notify(ctx, title, body); err != nil {
			log.Warn(config.MsgNotifyFailed, config.LogKeyError, err)
		}
	}

	if d.Vibrator != nil {
		if err := d.Vibrator.Vibrate(ctx, config.VibrationPattern); err != nil {
			log.Debug(config.MsgVibrateFailed, config.LogKeyError, err)
		}
	}

	if d.Audio != nil {
		voice := d.settings.VoiceID
		d.audio.Add(1)
		go func() {
			defer d.audio.Done()
			if err := d.Audio.PlayDispatch(ctx, voice); err != nil {
				log.Error(config.MsgAudioFailed,
					config.LogKeyVoice, voice,
					config.LogKeyError, err)
			}
		}()
	}
}

func (d *Dispatcher) message(p Prayer, loc Location) (string, string) {
	if d.FormatMessage != nil {
		return d.FormatMessage(p, loc)
	}
	return fmt.Sprintf(config.FallbackNotifTitle, p), fmt.Sprintf(config.FallbackNotifBody, p, loc.DisplayName())
}
