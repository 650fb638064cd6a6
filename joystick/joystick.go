package joystick

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alia5/padmap/device"
)

var (
	// ErrNoInputs is returned by Initialize for devices without buttons, hats or axes.
	ErrNoInputs = errors.New("no buttons, hats or axes")
	// ErrNotInitialized is returned by GetEvents before Initialize succeeded.
	ErrNotInitialized = errors.New("joystick not initialized")
)

// StateSink receives the state a driver reads during ScanEvents.
// Out-of-range indexes are ignored.
type StateSink interface {
	SetButtonValue(index uint, pressed bool)
	SetHatValue(index uint, state HatState)
	SetAxisValue(index uint, value float32)
	SetAxisValueRaw(index uint, value, maxAmount int64)
}

// Driver is the device side of a Joystick.
type Driver interface {
	// ScanEvents reads the current device state into sink. A non-nil error
	// means the state could not be read and no events are produced.
	ScanEvents(sink StateSink) error
	// SendMotorCommand sets motor index to strength in [0,1]. It reports
	// whether the device accepted the command.
	SendMotorCommand(index uint, strength float32) bool
}

// Activation describes the first input a joystick received after
// inactivity. A ghost activation means the registry should rescan because
// the device was registered without identification.
type Activation struct {
	Activated bool
	Ghost     bool
}

// Option configures a Joystick.
type Option func(*Joystick)

func WithLogger(logger *slog.Logger) Option {
	return func(j *Joystick) { j.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(j *Joystick) { j.now = now }
}

// Joystick diffs the state reported by its driver between polls.
//
// A Joystick is owned by the goroutine that polls it and is not safe for
// concurrent use.
type Joystick struct {
	handle device.Handle
	info   device.Info
	driver Driver
	logger *slog.Logger
	now    func() time.Time

	state       State // committed at the end of the last poll
	buffer      State // written by the driver during ScanEvents
	initialized bool
	pending     Activation

	discovered time.Time
	activated  time.Time
	firstEvent time.Time
	lastEvent  time.Time
}

func New(h device.Handle, info device.Info, driver Driver, opts ...Option) *Joystick {
	j := &Joystick{
		handle: h,
		info:   info,
		driver: driver,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.discovered = j.now()
	return j
}

func (j *Joystick) Handle() device.Handle { return j.handle }
func (j *Joystick) Info() device.Info     { return j.info }

// Equals reports whether both joysticks refer to the same physical device.
func (j *Joystick) Equals(o *Joystick) bool {
	return o != nil && j.info.Equals(o.info)
}

// Initialize sizes the state snapshots from the device counts.
func (j *Joystick) Initialize() error {
	if !j.info.HasInputs() {
		j.logger.Error("failed to initialize joystick", "provider", j.info.Provider, "name", j.info.Name, "error", ErrNoInputs)
		return fmt.Errorf("initialize %s joystick: %w", j.info.Provider, ErrNoInputs)
	}

	j.state = newState(j.info.ButtonCount, j.info.HatCount, j.info.AxisCount)
	j.buffer = newState(j.info.ButtonCount, j.info.HatCount, j.info.AxisCount)
	j.initialized = true
	return nil
}

// Deinitialize drops both snapshots. GetEvents fails until the next Initialize.
func (j *Joystick) Deinitialize() {
	j.state = State{}
	j.buffer = State{}
	j.initialized = false
}

// State returns a copy of the state committed by the last poll.
func (j *Joystick) State() State { return j.state.Clone() }

// GetEvents polls the driver and returns the changes since the last poll:
// buttons and hats that changed, then every axis the driver reported.
func (j *Joystick) GetEvents() ([]Event, error) {
	if !j.initialized {
		return nil, ErrNotInitialized
	}
	if err := j.driver.ScanEvents(j); err != nil {
		return nil, fmt.Errorf("scan %s: %w", j.info.Name, err)
	}

	var events []Event
	for i, pressed := range j.buffer.Buttons {
		if pressed != j.state.Buttons[i] {
			events = append(events, ButtonEvent(uint(i), pressed))
		}
	}
	for i, hat := range j.buffer.Hats {
		if hat != j.state.Hats[i] {
			events = append(events, HatEvent(uint(i), hat))
		}
	}
	for i, axis := range j.buffer.Axes {
		if axis.Seen {
			events = append(events, AxisEvent(uint(i), axis.Value))
		}
	}

	j.state.copyFrom(j.buffer)
	for i := range j.buffer.Axes {
		j.buffer.Axes[i].Seen = false
	}

	j.updateTimers()
	return events, nil
}

// SendEvent forwards motor events to the driver. Other events are not
// handled and return false.
func (j *Joystick) SendEvent(e Event) bool {
	if e.Type != EventMotor {
		return false
	}
	if e.Index >= j.info.MotorCount {
		return false
	}
	return j.driver.SendMotorCommand(e.Index, clamp(e.Value, 0, 1))
}

// Activate marks the joystick active on its first input. The returned
// activation is also kept until TakeActivation.
func (j *Joystick) Activate() Activation {
	if j.IsActive() {
		return Activation{}
	}
	j.activated = j.now()
	a := Activation{Activated: true, Ghost: j.info.IsGhost()}
	if a.Ghost {
		j.logger.Debug("ghost joystick activated", "handle", j.handle, "provider", j.info.Provider)
	}
	j.pending = a
	return a
}

// TakeActivation returns and clears the activation recorded by the setters.
func (j *Joystick) TakeActivation() Activation {
	a := j.pending
	j.pending = Activation{}
	return a
}

func (j *Joystick) IsActive() bool { return !j.activated.IsZero() }

func (j *Joystick) DiscoverTime() time.Time   { return j.discovered }
func (j *Joystick) ActivateTime() time.Time   { return j.activated }
func (j *Joystick) FirstEventTime() time.Time { return j.firstEvent }
func (j *Joystick) LastEventTime() time.Time  { return j.lastEvent }

func (j *Joystick) SetButtonValue(index uint, pressed bool) {
	j.Activate()
	if index < uint(len(j.buffer.Buttons)) {
		j.buffer.Buttons[index] = pressed
	}
}

func (j *Joystick) SetHatValue(index uint, state HatState) {
	j.Activate()
	if index < uint(len(j.buffer.Hats)) {
		j.buffer.Hats[index] = state
	}
}

// SetAxisValue records an axis position, clamped to [-1,1].
func (j *Joystick) SetAxisValue(index uint, value float32) {
	j.Activate()
	value = clamp(value, -1, 1)
	if index < uint(len(j.buffer.Axes)) {
		j.buffer.Axes[index] = AxisState{Value: value, Seen: true}
	}
}

// SetAxisValueRaw records value/maxAmount. A zero maxAmount records 0.
func (j *Joystick) SetAxisValueRaw(index uint, value, maxAmount int64) {
	if maxAmount == 0 {
		j.SetAxisValue(index, 0)
		return
	}
	j.SetAxisValue(index, float32(value)/float32(maxAmount))
}

func (j *Joystick) updateTimers() {
	now := j.now()
	if j.firstEvent.IsZero() {
		j.firstEvent = now
	}
	j.lastEvent = now
}

// NormalizeAxis clamps value to [-max,max] and scales it to [-1,1].
func NormalizeAxis(value, maxAmount int64) float32 {
	if maxAmount == 0 {
		return 0
	}
	if maxAmount < 0 {
		maxAmount = -maxAmount
	}
	value = min(max(value, -maxAmount), maxAmount)
	return float32(value) / float32(maxAmount)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
