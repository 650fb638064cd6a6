package storage_test

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/buttonmap"
	"github.com/Alia5/padmap/device"
	"github.com/Alia5/padmap/storage"
)

func sampleMap() buttonmap.ButtonMap {
	return buttonmap.ButtonMap{
		"game.controller.default": {
			buttonmap.NewScalar("a", buttonmap.Button(0)),
			buttonmap.NewAnalogStick("leftstick",
				buttonmap.SemiAxis(1, buttonmap.SemiAxisNegative),
				buttonmap.SemiAxis(1, buttonmap.SemiAxisPositive),
				buttonmap.SemiAxis(0, buttonmap.SemiAxisPositive),
				buttonmap.SemiAxis(0, buttonmap.SemiAxisNegative),
			),
			buttonmap.NewScalar("lefttrigger", buttonmap.SemiAxisRange(4, -1, buttonmap.SemiAxisPositive, 2)),
			buttonmap.NewMotor("strong", buttonmap.Motor(0)),
			buttonmap.NewScalar("up", buttonmap.Hat(0, buttonmap.HatUp)),
		},
		"game.controller.snes": {
			buttonmap.NewScalar("b", buttonmap.Button(1)),
		},
	}
}

func newBackend() (*storage.FileBackend, afero.Fs) {
	memfs := afero.NewMemMapFs()
	return storage.NewFileBackend(memfs, slog.New(slog.DiscardHandler)), memfs
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, path := range []string{"pads/pad.json", "pads/pad.yaml", "pads/pad.yml", "pads/pad.toml"} {
		t.Run(path, func(t *testing.T) {
			backend, memfs := newBackend()

			require.NoError(t, backend.Save(path, sampleMap()))
			got, err := backend.Load(path)
			require.NoError(t, err)
			if diff := cmp.Diff(sampleMap(), got); diff != "" {
				t.Fatalf("Load mismatch (-want +got):\n%s", diff)
			}

			exists, err := afero.Exists(memfs, path+".tmp")
			require.NoError(t, err)
			assert.False(t, exists, "temporary file must be renamed away")
		})
	}
}

func TestLoadMissing(t *testing.T) {
	backend, _ := newBackend()

	_, err := backend.Load("missing.json")
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)
	assert.ErrorIs(t, err, buttonmap.ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestUnsupportedFormat(t *testing.T) {
	backend, _ := newBackend()

	_, err := backend.Load("pad.xml")
	assert.ErrorIs(t, err, storage.ErrUnsupportedFormat)
	assert.ErrorIs(t, backend.Save("pad.xml", sampleMap()), storage.ErrUnsupportedFormat)
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
	}{
		{"not json", "pad.json", "{"},
		{"unknown feature type", "pad.json", `{"controllers":[{"id":"c","features":[{"name":"a","type":"joystick"}]}]}`},
		{"unknown slot", "pad.json", `{"controllers":[{"id":"c","features":[{"name":"a","type":"scalar","primitives":{"up":"button 1"}}]}]}`},
		{"bad primitive", "pad.yaml", "controllers:\n  - id: c\n    features:\n      - name: a\n        type: scalar\n        primitives:\n          scalar: trigger 1\n"},
		{"missing id", "pad.toml", "[[controllers]]\nfeatures = []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, memfs := newBackend()
			require.NoError(t, afero.WriteFile(memfs, tt.path, []byte(tt.content), 0o644))

			_, err := backend.Load(tt.path)
			assert.ErrorIs(t, err, storage.ErrCorrupt)
		})
	}
}

// renameFailFs fails every rename so the temp file is never promoted.
type renameFailFs struct {
	afero.Fs
}

func (renameFailFs) Rename(string, string) error { return &os.LinkError{Op: "rename", Err: errors.ErrUnsupported} }

func TestFailedSaveKeepsPreviousContent(t *testing.T) {
	memfs := afero.NewMemMapFs()
	good := storage.NewFileBackend(memfs, slog.New(slog.DiscardHandler))
	require.NoError(t, good.Save("pad.json", sampleMap()))

	failing := storage.NewFileBackend(renameFailFs{memfs}, slog.New(slog.DiscardHandler))
	err := failing.Save("pad.json", buttonmap.ButtonMap{"other": {buttonmap.NewScalar("x", buttonmap.Button(9))}})
	assert.ErrorIs(t, err, errors.ErrUnsupported)

	got, err := good.Load("pad.json")
	require.NoError(t, err)
	assert.Equal(t, sampleMap(), got)
	exists, _ := afero.Exists(memfs, "pad.json.tmp")
	assert.False(t, exists)
}

func TestDeviceHeader(t *testing.T) {
	backend, memfs := newBackend()
	info := device.Info{Name: "Pad", Provider: "virtual", VendorID: 0x1209, ProductID: 1, ButtonCount: 11, HatCount: 1, AxisCount: 6}

	require.NoError(t, backend.ForDevice(info).Save("pad.json", sampleMap()))
	raw, err := afero.ReadFile(memfs, "pad.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"vid": "1209"`)
	assert.Contains(t, string(raw), `"buttons": 11`)
}

func TestEmptyProfilesAreNotWritten(t *testing.T) {
	backend, _ := newBackend()
	require.NoError(t, backend.Save("pad.yaml", buttonmap.ButtonMap{"empty": {}, "c": {buttonmap.NewScalar("a", buttonmap.Button(0))}}))

	got, err := backend.Load("pad.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.Profiles())
}

func TestResourcePath(t *testing.T) {
	tests := []struct {
		name   string
		info   device.Info
		format storage.Format
		want   string
	}{
		{
			name:   "full identification",
			info:   device.Info{Name: "Xbox 360 Controller", Provider: "xinput", VendorID: 0x045e, ProductID: 0x028e, ButtonCount: 15, AxisCount: 6},
			format: storage.FormatJSON,
			want:   "xinput/Xbox 360 Controller_v045E_p028E_15b_0h_6a.json",
		},
		{
			name:   "mac address stripped",
			info:   device.Info{Name: "Wireless Controller (a0:b1:c2:d3:e4:f5)", Provider: "linux", ButtonCount: 13, AxisCount: 8},
			format: storage.FormatYAML,
			want:   "linux/Wireless Controller_13b_0h_8a.yaml",
		},
		{
			name:   "unnamed",
			info:   device.Info{ButtonCount: 1},
			format: storage.FormatTOML,
			want:   "unknown_1b_0h_0a.toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.ResourcePath(tt.info, tt.format))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := storage.ParseFormat(".YML")
	require.NoError(t, err)
	assert.Equal(t, storage.FormatYAML, f)

	_, err = storage.ParseFormat("ini")
	assert.ErrorIs(t, err, storage.ErrUnsupportedFormat)
}
