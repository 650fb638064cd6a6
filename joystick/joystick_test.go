package joystick_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/joystick"
	th "github.com/Alia5/padmap/internal/testing"
)

type motorCall struct {
	index    uint
	strength float32
}

type scriptedDriver struct {
	frames []func(joystick.StateSink)
	err    error
	motors []motorCall
}

func (d *scriptedDriver) ScanEvents(sink joystick.StateSink) error {
	if d.err != nil {
		return d.err
	}
	if len(d.frames) > 0 {
		d.frames[0](sink)
		d.frames = d.frames[1:]
	}
	return nil
}

func (d *scriptedDriver) SendMotorCommand(index uint, strength float32) bool {
	d.motors = append(d.motors, motorCall{index, strength})
	return true
}

func padInfo() device.Info {
	return device.Info{
		Name:        "Test Pad",
		Provider:    "virtual",
		VendorID:    0x045e,
		ProductID:   0x028e,
		ButtonCount: 4,
		HatCount:    1,
		AxisCount:   2,
		MotorCount:  2,
	}
}

func newJoystick(t *testing.T, info device.Info, d *scriptedDriver, clock *th.FakeClock) *joystick.Joystick {
	t.Helper()
	j := joystick.New(device.Handle(0), info, d,
		joystick.WithClock(clock.Now),
		joystick.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, j.Initialize())
	return j
}

func TestInitializeWithoutInputs(t *testing.T) {
	j := joystick.New(device.Handle(0), device.Info{Provider: "virtual", MotorCount: 2}, &scriptedDriver{},
		joystick.WithLogger(slog.New(slog.DiscardHandler)))

	err := j.Initialize()
	assert.ErrorIs(t, err, joystick.ErrNoInputs)

	_, err = j.GetEvents()
	assert.ErrorIs(t, err, joystick.ErrNotInitialized)
}

func TestGetEvents(t *testing.T) {
	tests := []struct {
		name   string
		frames []func(joystick.StateSink)
		want   [][]joystick.Event
	}{
		{
			name: "buttons emit only on change",
			frames: []func(joystick.StateSink){
				func(s joystick.StateSink) { s.SetButtonValue(1, true) },
				func(s joystick.StateSink) { s.SetButtonValue(1, true) },
				func(s joystick.StateSink) { s.SetButtonValue(1, false) },
			},
			want: [][]joystick.Event{
				{joystick.ButtonEvent(1, true)},
				nil,
				{joystick.ButtonEvent(1, false)},
			},
		},
		{
			name: "hats emit only on change",
			frames: []func(joystick.StateSink){
				func(s joystick.StateSink) { s.SetHatValue(0, joystick.HatUpRight) },
				func(s joystick.StateSink) { s.SetHatValue(0, joystick.HatUpRight) },
				func(s joystick.StateSink) { s.SetHatValue(0, joystick.HatCentered) },
			},
			want: [][]joystick.Event{
				{joystick.HatEvent(0, joystick.HatUpRight)},
				nil,
				{joystick.HatEvent(0, joystick.HatCentered)},
			},
		},
		{
			name: "axes emit every reported tick",
			frames: []func(joystick.StateSink){
				func(s joystick.StateSink) { s.SetAxisValue(1, 0.5) },
				func(s joystick.StateSink) { s.SetAxisValue(1, 0.5) },
				func(s joystick.StateSink) {},
			},
			want: [][]joystick.Event{
				{joystick.AxisEvent(1, 0.5)},
				{joystick.AxisEvent(1, 0.5)},
				nil,
			},
		},
		{
			name: "events are ordered buttons, hats, axes",
			frames: []func(joystick.StateSink){
				func(s joystick.StateSink) {
					s.SetAxisValue(0, -0.25)
					s.SetHatValue(0, joystick.HatLeft)
					s.SetButtonValue(3, true)
					s.SetButtonValue(0, true)
				},
			},
			want: [][]joystick.Event{
				{
					joystick.ButtonEvent(0, true),
					joystick.ButtonEvent(3, true),
					joystick.HatEvent(0, joystick.HatLeft),
					joystick.AxisEvent(0, -0.25),
				},
			},
		},
		{
			name: "out of range indexes are ignored",
			frames: []func(joystick.StateSink){
				func(s joystick.StateSink) {
					s.SetButtonValue(4, true)
					s.SetHatValue(1, joystick.HatUp)
					s.SetAxisValue(2, 1)
				},
			},
			want: [][]joystick.Event{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &scriptedDriver{frames: tt.frames}
			j := newJoystick(t, padInfo(), d, th.NewFakeClock())

			for i, want := range tt.want {
				got, err := j.GetEvents()
				require.NoError(t, err)
				assert.Equal(t, want, got, "poll %d", i)
			}
		})
	}
}

func TestAxisClamp(t *testing.T) {
	var reported []float32
	d := &scriptedDriver{frames: []func(joystick.StateSink){
		func(s joystick.StateSink) { s.SetAxisValue(0, 1.5) },
		func(s joystick.StateSink) { s.SetAxisValue(0, -2.0) },
		func(s joystick.StateSink) { s.SetAxisValueRaw(0, 16384, 32768) },
		func(s joystick.StateSink) { s.SetAxisValueRaw(0, 12, 0) },
	}}
	j := newJoystick(t, padInfo(), d, th.NewFakeClock())

	for range 4 {
		_, err := j.GetEvents()
		require.NoError(t, err)
		reported = append(reported, j.State().Axes[0].Value)
	}
	assert.Equal(t, []float32{1.0, -1.0, 0.5, 0}, reported)
}

func TestNormalizeAxis(t *testing.T) {
	assert.Equal(t, float32(1), joystick.NormalizeAxis(40000, 32767))
	assert.Equal(t, float32(-1), joystick.NormalizeAxis(-40000, 32767))
	assert.Equal(t, float32(0.5), joystick.NormalizeAxis(50, 100))
	assert.Equal(t, float32(0), joystick.NormalizeAxis(50, 0))
}

func TestScanFailureProducesNoEvents(t *testing.T) {
	clock := th.NewFakeClock()
	d := &scriptedDriver{err: errors.New("device unplugged")}
	j := newJoystick(t, padInfo(), d, clock)

	events, err := j.GetEvents()
	assert.ErrorIs(t, err, d.err)
	assert.Nil(t, events)
	assert.True(t, j.LastEventTime().IsZero())
}

func TestTimers(t *testing.T) {
	clock := th.NewFakeClock()
	d := &scriptedDriver{}
	j := newJoystick(t, padInfo(), d, clock)
	start := clock.Now()

	_, err := j.GetEvents()
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = j.GetEvents()
	require.NoError(t, err)

	assert.Equal(t, start, j.DiscoverTime())
	assert.Equal(t, start, j.FirstEventTime())
	assert.Equal(t, start.Add(time.Second), j.LastEventTime())
}

func TestActivation(t *testing.T) {
	t.Run("first input activates once", func(t *testing.T) {
		clock := th.NewFakeClock()
		d := &scriptedDriver{frames: []func(joystick.StateSink){
			func(s joystick.StateSink) { s.SetButtonValue(0, true) },
			func(s joystick.StateSink) { s.SetButtonValue(0, false) },
		}}
		j := newJoystick(t, padInfo(), d, clock)
		assert.False(t, j.IsActive())

		clock.Advance(time.Second)
		_, err := j.GetEvents()
		require.NoError(t, err)
		assert.Equal(t, joystick.Activation{Activated: true}, j.TakeActivation())
		assert.Equal(t, clock.Now(), j.ActivateTime())

		_, err = j.GetEvents()
		require.NoError(t, err)
		assert.Equal(t, joystick.Activation{}, j.TakeActivation())
	})

	t.Run("ghost device asks for rescan", func(t *testing.T) {
		info := padInfo()
		info.Name, info.VendorID, info.ProductID = "", 0, 0
		d := &scriptedDriver{frames: []func(joystick.StateSink){
			func(s joystick.StateSink) { s.SetAxisValue(0, 0.1) },
		}}
		j := newJoystick(t, info, d, th.NewFakeClock())

		_, err := j.GetEvents()
		require.NoError(t, err)
		assert.Equal(t, joystick.Activation{Activated: true, Ghost: true}, j.TakeActivation())
	})
}

func TestSendEvent(t *testing.T) {
	d := &scriptedDriver{}
	j := newJoystick(t, padInfo(), d, th.NewFakeClock())

	assert.True(t, j.SendEvent(joystick.MotorEvent(1, 1.7)))
	assert.False(t, j.SendEvent(joystick.MotorEvent(2, 0.5)), "no such motor")
	assert.False(t, j.SendEvent(joystick.ButtonEvent(0, true)))
	assert.Equal(t, []motorCall{{1, 1}}, d.motors)
}

func TestEquals(t *testing.T) {
	a := joystick.New(0, padInfo(), &scriptedDriver{})
	b := joystick.New(1, padInfo(), &scriptedDriver{})
	other := padInfo()
	other.RequestedPort = 2
	c := joystick.New(2, other, &scriptedDriver{})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))
}

func TestDeinitialize(t *testing.T) {
	j := newJoystick(t, padInfo(), &scriptedDriver{}, th.NewFakeClock())
	j.Deinitialize()

	_, err := j.GetEvents()
	assert.ErrorIs(t, err, joystick.ErrNotInitialized)
	assert.Empty(t, j.State().Buttons)
}

func TestHatStateString(t *testing.T) {
	assert.Equal(t, "centered", joystick.HatCentered.String())
	assert.Equal(t, "up-right", joystick.HatUpRight.String())
	assert.Equal(t, "down-left", joystick.HatDownLeft.String())
}
