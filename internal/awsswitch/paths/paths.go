package paths

import (
	"path/filepath"
	"strings"
)

// Directory and file name constants for the AWS configuration tree
const (
	AWSDirName          = ".aws"
	CredentialsFileName = "credentials"
	ConfigFileName      = "config"
	ToolDirName         = ".aws-switch"
	StateFileName       = "state.toml"
	ToolConfigFileName  = "config.toml"
	BackupDirName       = "backups"
)

// PathBuilder provides methods to construct AWS configuration paths relative to a home directory.
type PathBuilder struct {
	homeDir string
}

// New creates a new PathBuilder for the given home directory.
func New(homeDir string) *PathBuilder {
	return &PathBuilder{homeDir: homeDir}
}

// HomeDir returns the home directory the builder is rooted at.
func (p *PathBuilder) HomeDir() string {
	return p.homeDir
}

// ActiveDir returns the active .aws directory path.
func (p *PathBuilder) ActiveDir() string {
	return filepath.Join(p.homeDir, AWSDirName)
}

// AlternativeDir returns the directory holding the named alternative, e.g. ".aws.v2" for "v2".
func (p *PathBuilder) AlternativeDir(name string) string {
	return filepath.Join(p.homeDir, AWSDirName+"."+name)
}

// AlternativeName extracts the alternative name from a directory base name.
// It reports false for names that are not of the form ".aws.<name>".
func AlternativeName(base string) (string, bool) {
	prefix := AWSDirName + "."
	if !strings.HasPrefix(base, prefix) || len(base) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(base, prefix), true
}

// CredentialsPath returns the credentials file inside the given configuration directory.
func CredentialsPath(dir string) string {
	return filepath.Join(dir, CredentialsFileName)
}

// SharedConfigPath returns the SDK config file inside the given configuration directory.
func SharedConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// ToolDir returns the directory where aws-switch keeps its own state.
func (p *PathBuilder) ToolDir() string {
	return filepath.Join(p.homeDir, ToolDirName)
}

// StatePath returns the path to the switch state file.
func (p *PathBuilder) StatePath() string {
	return filepath.Join(p.ToolDir(), StateFileName)
}

// ToolConfigPath returns the path to the optional aws-switch configuration file.
func (p *PathBuilder) ToolConfigPath() string {
	return filepath.Join(p.ToolDir(), ToolConfigFileName)
}

// BackupDir returns the directory where credential backups are stored.
func (p *PathBuilder) BackupDir() string {
	return filepath.Join(p.ToolDir(), BackupDirName)
}
