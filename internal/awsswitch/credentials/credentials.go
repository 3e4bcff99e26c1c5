// Package credentials reads and patches the section-based AWS credentials file.
//
// The file is kept as an ordered section -> key -> value mapping so that
// sections, keys and comments which are not touched by a restore are written
// back in their original order.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/ini.v1"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/domain"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/paths"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/storage"
)

// Field names of the key pair inside a profile section.
const (
	AccessKeyField = "aws_access_key_id"
	SecretKeyField = "aws_secret_access_key"
)

// unnamedSection holds the keys that precede the first header. It cannot
// appear as a header, so a literal [DEFAULT] stays an ordinary profile.
const unnamedSection = "\x00UNNAMED"

func init() {
	// Write "key = value" without aligning keys across a section.
	ini.PrettyFormat = false
	ini.PrettyEqual = true
	ini.DefaultSection = unnamedSection
}

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment: true,
	// "s3 =" followed by indented "key = value" lines, as the AWS CLI writes them.
	AllowNestedValues: true,
}

// Credential is the key pair of one profile. An empty ProfileName denotes
// the unnamed section that precedes the first header.
type Credential struct {
	ProfileName     string `mapstructure:"profile_name"`
	AccessKeyID     string `mapstructure:"aws_access_key_id"`
	SecretAccessKey string `mapstructure:"aws_secret_access_key"`
}

// DisplayName returns the profile name, or a placeholder for the unnamed section.
func (c Credential) DisplayName() string {
	if c.ProfileName == "" {
		return "<no name>"
	}
	return c.ProfileName
}

// File is a parsed credentials file.
type File struct {
	path string
	ini  *ini.File
}

// Parse parses credentials file content. path is only used in errors.
func Parse(path string, data []byte) (*File, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return &File{path: path, ini: f}, nil
}

// Path returns the file path the content was read from.
func (f *File) Path() string {
	return f.path
}

// hasKey only looks at the section's own keys; ini.v1 lets "[a.b]" inherit from "[a]".
func hasKey(sec *ini.Section, name string) bool {
	return slices.Contains(sec.KeyStrings(), name)
}

func setKey(sec *ini.Section, name, value string) error {
	if hasKey(sec, name) {
		sec.Key(name).SetValue(value)
		return nil
	}
	_, err := sec.NewKey(name, value)
	return err
}

func profileName(sec *ini.Section) string {
	if sec.Name() == unnamedSection {
		return ""
	}
	return sec.Name()
}

// Credentials returns every section that defines both key fields, in file order.
func (f *File) Credentials() ([]Credential, error) {
	var creds []Credential
	for _, sec := range f.ini.Sections() {
		if !hasKey(sec, AccessKeyField) || !hasKey(sec, SecretKeyField) {
			continue
		}
		var cred Credential
		if err := mapstructure.Decode(sec.KeysHash(), &cred); err != nil {
			return nil, &domain.ParseError{Path: f.path, Err: fmt.Errorf("section %q: %w", sec.Name(), err)}
		}
		cred.ProfileName = profileName(sec)
		creds = append(creds, cred)
	}
	return creds, nil
}

// Apply overwrites the key pair of every section that already defines an
// access key and has a credential with the same profile name. It returns the
// names of the updated profiles and of the key-bearing profiles left alone.
func (f *File) Apply(creds []Credential) (updated, untouched []string, err error) {
	index := make(map[string]Credential, len(creds))
	for _, c := range creds {
		index[c.ProfileName] = c
	}
	for _, sec := range f.ini.Sections() {
		if !hasKey(sec, AccessKeyField) {
			continue
		}
		name := profileName(sec)
		cred, ok := index[name]
		if !ok {
			untouched = append(untouched, name)
			continue
		}
		if err := setKey(sec, AccessKeyField, cred.AccessKeyID); err != nil {
			return nil, nil, err
		}
		if err := setKey(sec, SecretKeyField, cred.SecretAccessKey); err != nil {
			return nil, nil, err
		}
		updated = append(updated, name)
	}
	return updated, untouched, nil
}

// Bytes serializes the file.
func (f *File) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.ini.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Service extracts and restores credentials inside configuration directories.
type Service struct {
	storage *storage.Storage
	logger  *slog.Logger
}

// New creates a credentials Service.
func New(storage *storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{storage: storage, logger: logger}
}

// Load reads and parses the credentials file of dir. A missing file is a
// *domain.ParseError like any other unreadable content.
func (s *Service) Load(dir string) (*File, error) {
	path := paths.CredentialsPath(dir)
	data, err := s.storage.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.ParseError{Path: path, Err: err}
		}
		return nil, &domain.IOError{Op: "read", Path: path, Err: err}
	}
	return Parse(path, data)
}

// Extract returns the credentials of every complete profile in dir.
func (s *Service) Extract(dir string) ([]Credential, error) {
	f, err := s.Load(dir)
	if err != nil {
		return nil, err
	}
	creds, err := f.Credentials()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("credentials extracted",
		"path", f.Path(),
		"profiles", len(creds))
	return creds, nil
}

// Restore re-applies creds to the credentials file of dir and writes it back.
// Nothing is read or written when creds is empty.
func (s *Service) Restore(dir string, creds []Credential) ([]string, error) {
	if len(creds) == 0 {
		s.logger.Info("no credentials to restore")
		return nil, nil
	}
	f, err := s.Load(dir)
	if err != nil {
		return nil, err
	}

	updated, untouched, err := f.Apply(creds)
	if err != nil {
		return nil, &domain.IOError{Op: "patch", Path: f.Path(), Err: err}
	}
	for _, name := range updated {
		s.logger.Info("setting access key and secret key", "profile", displayName(name))
	}
	for _, name := range untouched {
		s.logger.Info("no credentials to set", "profile", displayName(name))
	}

	data, err := f.Bytes()
	if err != nil {
		return nil, &domain.IOError{Op: "encode", Path: f.Path(), Err: err}
	}
	if err := s.storage.WriteFileAtomic(f.Path(), data); err != nil {
		return nil, &domain.IOError{Op: "write", Path: f.Path(), Err: err}
	}
	return updated, nil
}

func displayName(name string) string {
	return Credential{ProfileName: name}.DisplayName()
}

// Obfuscate masks all but the first and last n characters of s.
func Obfuscate(s string, n int) string {
	runes := []rune(s)
	out := make([]rune, len(runes))
	for i, r := range runes {
		if i >= n && i < len(runes)-n {
			out[i] = '*'
		} else {
			out[i] = r
		}
	}
	return string(out)
}
