package buttonmap

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Alia5/padmap/device"
)

// DefaultLifetime is how long a loaded button map is trusted before the
// backing store is read again.
const DefaultLifetime = 2 * time.Second

// ErrNotFound is wrapped by backends when no button map has been stored for
// a resource yet. Store treats it as an empty map.
var ErrNotFound = errors.New("button map not found")

// Backend persists button maps. Save must not corrupt previously persisted
// content when it fails, and a Load after a successful Save must observe it.
type Backend interface {
	Load(resourcePath string) (ButtonMap, error)
	Save(resourcePath string, m ButtonMap) error
}

// AxisConfigurer recalibrates a device axis when a semi-axis is bound to a
// feature.
type AxisConfigurer interface {
	LoadAxisFromAPI(axisIndex uint, h device.Handle)
}

// Option configures a Store.
type Option func(*Store)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(s *Store) { s.lifetime = d }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the diagnostics sink. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithAxisConfigurer sets the collaborator notified of newly bound axes.
func WithAxisConfigurer(c AxisConfigurer) Option {
	return func(s *Store) { s.axes = c }
}

// Store caches the button map of one device and tracks uncommitted edits.
//
// A Store is not safe for concurrent use; it belongs to the goroutine that
// runs the device's editing session.
type Store struct {
	resourcePath string
	device       device.Handle
	backend      Backend
	axes         AxisConfigurer
	logger       *slog.Logger
	now          func() time.Time
	lifetime     time.Duration

	current   ButtonMap
	backup    ButtonMap // nil when there are no pending edits
	refreshed time.Time
	modified  bool
}

// NewStore returns a store for the button map persisted at resourcePath.
// Nothing is loaded until the first GetButtonMap or Refresh.
func NewStore(resourcePath string, h device.Handle, backend Backend, opts ...Option) *Store {
	s := &Store{
		resourcePath: resourcePath,
		device:       h,
		backend:      backend,
		logger:       slog.Default(),
		now:          time.Now,
		lifetime:     DefaultLifetime,
		current:      ButtonMap{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResourcePath returns the location the store loads from and saves to.
func (s *Store) ResourcePath() string { return s.resourcePath }

// Device returns the handle of the device the map belongs to.
func (s *Store) Device() device.Handle { return s.device }

// IsModified reports whether there are edits that have not been saved.
func (s *Store) IsModified() bool { return s.modified }

// HasBackup reports whether RevertButtonMap has something to restore.
func (s *Store) HasBackup() bool { return s.backup != nil }

// GetButtonMap returns a copy of the current map, refreshing it from the
// backend first unless there are unsaved edits.
func (s *Store) GetButtonMap() ButtonMap {
	s.refreshIfClean()
	return s.current.Clone()
}

// Features returns a copy of one profile's features.
func (s *Store) Features(profileID string) FeatureVector {
	s.refreshIfClean()
	return s.current[profileID].Clone()
}

// Profiles returns the ids of profiles that have features, in ascending order.
func (s *Store) Profiles() []string {
	s.refreshIfClean()
	ids := make([]string, 0, len(s.current))
	for _, id := range s.current.Profiles() {
		if len(s.current[id]) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Refresh reloads the map when the cached copy is older than the lifetime.
// Every profile is sanitized on load and any pending edits are discarded.
// On failure the in-memory state is left untouched.
func (s *Store) Refresh() error {
	now := s.now()
	if !s.refreshed.IsZero() && now.Before(s.refreshed.Add(s.lifetime)) {
		return nil
	}

	loaded, err := s.backend.Load(s.resourcePath)
	switch {
	case errors.Is(err, ErrNotFound):
		loaded = ButtonMap{}
	case err != nil:
		return fmt.Errorf("load button map %s: %w", s.resourcePath, err)
	}

	sanitized := make(ButtonMap, len(loaded))
	for id, features := range loaded {
		sanitized[id] = Sanitize(features, id, s.logger)
	}

	s.current = sanitized
	s.refreshed = now
	s.backup = nil
	s.modified = false
	return nil
}

// MapFeatures merges features into a profile one at a time, in order, and
// then sorts the profile by feature name. The map as it was before the first
// edit since the last load or save is kept for RevertButtonMap.
func (s *Store) MapFeatures(profileID string, features FeatureVector) {
	if len(features) == 0 {
		return
	}
	s.refreshIfClean()

	if s.backup == nil {
		s.backup = s.current.Clone()
	}

	if s.axes != nil {
		for _, axis := range Axes(features) {
			s.axes.LoadAxisFromAPI(axis, s.device)
		}
	}

	vector := s.current[profileID]
	for _, feature := range features {
		vector = MergeFeature(vector, feature, profileID, s.logger)
	}
	slices.SortStableFunc(vector, func(a, b Feature) int {
		return strings.Compare(a.Name, b.Name)
	})

	s.current[profileID] = vector
	s.modified = true
}

// SaveButtonMap persists the current map. On failure the edits and the
// revert point are kept so the caller can retry or revert.
func (s *Store) SaveButtonMap() error {
	if err := s.backend.Save(s.resourcePath, s.current.Clone()); err != nil {
		return fmt.Errorf("save button map %s: %w", s.resourcePath, err)
	}
	s.refreshed = s.now()
	s.backup = nil
	s.modified = false
	return nil
}

// RevertButtonMap discards pending edits. It returns false when there is
// nothing to revert.
func (s *Store) RevertButtonMap() bool {
	if s.backup == nil {
		return false
	}
	s.current = s.backup
	s.backup = nil
	s.modified = false
	return true
}

// ResetButtonMap clears one profile and saves. It returns false without
// saving when the profile has no features. If saving fails the profile stays
// cleared in memory and the reset can be reverted.
func (s *Store) ResetButtonMap(profileID string) (bool, error) {
	s.refreshIfClean()
	if len(s.current[profileID]) == 0 {
		return false, nil
	}

	if s.backup == nil {
		s.backup = s.current.Clone()
	}
	delete(s.current, profileID)
	s.modified = true

	if err := s.SaveButtonMap(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) refreshIfClean() {
	if s.modified {
		return
	}
	if err := s.Refresh(); err != nil {
		s.logger.Debug("button map refresh failed", "path", s.resourcePath, "error", err)
	}
}
