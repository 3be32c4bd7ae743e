package settings

import (
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"
)

const snapshotVersion = 1

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// Snapshot is the export/import payload.
type Snapshot struct {
	Version      int         `json:"version"`
	ActivePreset string      `json:"activePreset,omitempty"`
	Settings     ModSettings `json:"settings"`
}

// snapshotWire mirrors Snapshot with optional leaves so that imports can
// detect missing fields.
type snapshotWire struct {
	Version      int    `json:"version"`
	ActivePreset string `json:"activePreset,omitempty"`
	Settings     *Patch `json:"settings"`
}

// Store is the policy store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current ModSettings
	active  string
}

func NewStore() *Store {
	s := Default()
	return &Store{current: s, active: matchPreset(s, "")}
}

// Get returns a copy of the current settings.
func (s *Store) Get() ModSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// ActivePreset returns the preset the current settings correspond to, or "".
func (s *Store) ActivePreset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Update merges p into the current settings. The active preset marker is
// kept only while the result still agrees with a known preset.
func (s *Store) Update(p Patch) (ModSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Merge(p)
	if err := next.Validate(); err != nil {
		return s.current.Clone(), err
	}
	prev := s.active
	s.current = next
	s.active = matchPreset(next, prev)
	if prev != s.active {
		slog.Debug("Active preset changed by settings update", "old", prev, "new", s.active)
	}
	return next.Clone(), nil
}

// ApplyPreset merges the named preset and marks it active.
func (s *Store) ApplyPreset(name string) (ModSettings, error) {
	p, ok := presets[name]
	if !ok {
		return s.Get(), &ValidationError{Field: "preset", Reason: "unknown preset " + name}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Merge(p)
	if err := next.Validate(); err != nil {
		return s.current.Clone(), err
	}
	s.current = next
	s.active = name
	slog.Info("Moderation preset applied", "preset", name)
	return next.Clone(), nil
}

// Reset restores Default.
func (s *Store) Reset() ModSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Default()
	s.active = matchPreset(s.current, "")
	return s.current.Clone()
}

// Export serializes the whole policy.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	snap := Snapshot{Version: snapshotVersion, ActivePreset: s.active, Settings: s.current.Clone()}
	s.mu.RUnlock()
	return sonic.ConfigStd.Marshal(snap)
}

// Import replaces the whole policy with data. It fails closed: on any error
// the prior settings are kept and a *ValidationError is returned.
func (s *Store) Import(data []byte) error {
	next, active, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	s.active = matchPreset(next, active)
	slog.Info("Moderation settings imported", "active_preset", s.active)
	return nil
}

func decodeSnapshot(data []byte) (ModSettings, string, error) {
	var wire snapshotWire
	if err := strictJSON.Unmarshal(data, &wire); err != nil {
		return ModSettings{}, "", &ValidationError{Reason: "payload is not a well-formed settings snapshot", Err: err}
	}
	if wire.Version != snapshotVersion {
		return ModSettings{}, "", &ValidationError{Field: "version", Reason: "unsupported snapshot version"}
	}
	if wire.Settings == nil {
		return ModSettings{}, "", &ValidationError{Field: "settings", Reason: "missing from snapshot"}
	}
	if err := wire.Settings.requireComplete(); err != nil {
		return ModSettings{}, "", err
	}

	empty := ModSettings{
		LinkPolicy:  LinkPolicy{Whitelist: []string{}},
		BannedWords: BannedWords{Words: []string{}, RegexPatterns: []string{}},
	}
	next := empty.Merge(*wire.Settings)
	if err := next.Validate(); err != nil {
		return ModSettings{}, "", err
	}
	return next, wire.ActivePreset, nil
}
