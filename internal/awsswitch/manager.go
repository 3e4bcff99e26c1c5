package awsswitch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/backup"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/credentials"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/domain"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/paths"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/state"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/storage"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/validator"
)

// Manager coordinates switching the active ~/.aws directory with an alternative.
type Manager struct {
	fs        afero.Fs
	paths     *paths.PathBuilder
	storage   *storage.Storage
	creds     *credentials.Service
	backup    *backup.Service
	state     *state.Store
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager constructs a Manager rooted at homeDir.
func NewManager(fs afero.Fs, homeDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pb := paths.New(homeDir)
	stor := storage.New(fs)
	return &Manager{
		fs:        fs,
		paths:     pb,
		storage:   stor,
		creds:     credentials.New(stor, logger),
		backup:    backup.New(stor, pb.BackupDir(), logger),
		state:     state.New(stor, pb.StatePath()),
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// SetNow allows overriding the clock for testing.
func (m *Manager) SetNow(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	m.now = now
	m.backup.SetNow(now)
}

// FileSystem returns the underlying filesystem.
func (m *Manager) FileSystem() afero.Fs {
	return m.fs
}

// HomeDir returns the home directory the manager operates in.
func (m *Manager) HomeDir() string {
	return m.paths.HomeDir()
}

// ActiveDir returns the active .aws directory.
func (m *Manager) ActiveDir() string {
	return m.paths.ActiveDir()
}

// AlternativeDir returns the directory of the named alternative after normalizing the name.
func (m *Manager) AlternativeDir(name string) (string, error) {
	normalized, err := m.validator.NormalizeName(name)
	if err != nil {
		return "", err
	}
	return m.paths.AlternativeDir(normalized), nil
}

// BackupDir returns the directory holding credentials backups.
func (m *Manager) BackupDir() string {
	return m.paths.BackupDir()
}

// StatePath returns the switch state file path.
func (m *Manager) StatePath() string {
	return m.paths.StatePath()
}

// ValidateAlternativeName reports whether name can select an alternative directory.
func (m *Manager) ValidateAlternativeName(name string) (bool, error) {
	_, err := m.validator.NormalizeName(name)
	return err == nil, err
}

// SwitchResult describes a completed switch.
type SwitchResult struct {
	Alternative string
	Extracted   []credentials.Credential
	Restored    []string
	BackupPath  string
}

// Use makes the named alternative the active directory, carrying the key
// pairs of the current active directory over to same-named profiles.
//
// The steps run in order and stop at the first error: extract, back up,
// replace the directory, restore. Nothing is modified before both
// directories are confirmed to exist. There is no rollback once the
// directory replacement has started.
func (m *Manager) Use(name string) (*SwitchResult, error) {
	alternative, err := m.validator.NormalizeName(name)
	if err != nil {
		return nil, fmt.Errorf("invalid alternative name: %w", err)
	}
	active := m.paths.ActiveDir()
	replacement := m.paths.AlternativeDir(alternative)

	if err := m.preflight(active, replacement); err != nil {
		return nil, err
	}

	m.logger.Info("retrieving credentials", "path", active)
	creds, err := m.creds.Extract(active)
	if err != nil {
		return nil, err
	}
	if len(creds) > 0 {
		names := make([]string, 0, len(creds))
		for _, c := range creds {
			names = append(names, c.DisplayName())
		}
		m.logger.Info("retrieved credentials", "profiles", strings.Join(names, ", "))
	} else {
		m.logger.Info("no credentials were found")
	}

	backupPath, err := m.backup.BackupFile(paths.CredentialsPath(active))
	if err != nil {
		return nil, &domain.IOError{Op: "backup", Path: paths.CredentialsPath(active), Err: err}
	}

	m.logger.Info("copying directory", "from", replacement, "to", active)
	if err := m.storage.ReplaceDir(active, replacement); err != nil {
		return nil, err
	}

	restored, err := m.creds.Restore(active, creds)
	if err != nil {
		return nil, err
	}

	st := state.SwitchState{
		Alternative: alternative,
		SwitchedAt:  m.now().UTC(),
		Profiles:    restored,
	}
	if err := m.state.Save(st); err != nil {
		// The switch itself is complete; only the bookkeeping for list is lost.
		m.logger.Warn("failed to record switch state", "path", m.state.Path(), "error", err)
	}

	m.logger.Info("success", "alternative", alternative)
	return &SwitchResult{
		Alternative: alternative,
		Extracted:   creds,
		Restored:    restored,
		BackupPath:  backupPath,
	}, nil
}

func (m *Manager) preflight(active, replacement string) error {
	var missing []string
	for _, dir := range []string{active, replacement} {
		ok, err := m.storage.IsDir(dir)
		if err != nil {
			return &domain.IOError{Op: "stat", Path: dir, Err: err}
		}
		if !ok {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	for _, dir := range []string{active, replacement} {
		link, err := m.storage.IsSymlink(dir)
		if err != nil {
			return &domain.IOError{Op: "stat", Path: dir, Err: err}
		}
		if link {
			return &domain.IOError{Op: "switch", Path: dir, Err: errors.New("refusing to operate on a symlinked directory")}
		}
	}
	return nil
}

// Alternative summarizes one ~/.aws.<name> directory.
type Alternative struct {
	Name     string
	Dir      string
	LastUsed bool
	Profiles []credentials.Credential
	Err      error
}

// Alternatives lists the alternative directories next to the active one,
// sorted by name. A credentials file that cannot be read is reported on the
// entry rather than failing the listing.
func (m *Manager) Alternatives() ([]Alternative, error) {
	entries, err := m.storage.ReadDir(m.paths.HomeDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read home directory: %w", err)
	}
	st, err := m.state.Load()
	if err != nil {
		m.logger.Warn("ignoring unreadable switch state", "path", m.state.Path(), "error", err)
	}

	var result []Alternative
	for _, entry := range entries {
		name, ok := paths.AlternativeName(entry.Name())
		if !ok || !entry.IsDir() {
			continue
		}
		alt := Alternative{
			Name:     name,
			Dir:      m.paths.AlternativeDir(name),
			LastUsed: name == st.Alternative,
		}
		alt.Profiles, alt.Err = m.creds.Extract(alt.Dir)
		result = append(result, alt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// AlternativeNames returns the names of the alternative directories.
func (m *Manager) AlternativeNames() ([]string, error) {
	alts, err := m.Alternatives()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(alts))
	for _, alt := range alts {
		names = append(names, alt.Name)
	}
	return names, nil
}

// LastUsed returns the alternative recorded by the last successful switch.
func (m *Manager) LastUsed() string {
	st, err := m.state.Load()
	if err != nil {
		return ""
	}
	return st.Alternative
}

// ActiveProfiles returns the complete profiles of the active directory.
func (m *Manager) ActiveProfiles() ([]credentials.Credential, error) {
	ok, err := m.storage.IsDir(m.paths.ActiveDir())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigurationMissing, m.paths.ActiveDir())
	}
	return m.creds.Extract(m.paths.ActiveDir())
}

// PruneBackups removes credentials backups older than olderThan.
func (m *Manager) PruneBackups(olderThan time.Duration) (int, error) {
	return m.backup.PruneBackups(olderThan)
}
