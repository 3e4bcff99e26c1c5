package awsswitch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/credentials"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/domain"
	"github.com/example/aws-credentials-switcher/internal/awsswitch/paths"
)

var errUnnamedProfile = errors.New("unnamed section is not visible to the AWS SDK")

// ProfileCheck is the outcome of resolving one profile through the AWS SDK.
type ProfileCheck struct {
	Profile     string
	AccessKeyID string
	Resolved    bool
	Err         error
}

// Check resolves every complete profile of a configuration directory with
// the AWS SDK shared-config loader and reports whether the SDK sees the same
// static keys as the credentials file. An empty name checks the active
// directory. Nothing is modified and no network call is made.
func (m *Manager) Check(ctx context.Context, name string) ([]ProfileCheck, error) {
	dir := m.paths.ActiveDir()
	if name != "" {
		var err error
		if dir, err = m.AlternativeDir(name); err != nil {
			return nil, fmt.Errorf("invalid alternative name: %w", err)
		}
	}
	ok, err := m.storage.IsDir(dir)
	if err != nil {
		return nil, &domain.IOError{Op: "stat", Path: dir, Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigurationMissing, dir)
	}

	creds, err := m.creds.Extract(dir)
	if err != nil {
		return nil, err
	}

	// The SDK only reads from the OS filesystem, so the files are staged
	// into a private temp dir whatever afero.Fs backs the manager.
	staged, cleanup, err := m.stageForSDK(dir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	results := make([]ProfileCheck, 0, len(creds))
	for _, cred := range creds {
		results = append(results, checkProfile(ctx, staged, cred))
	}
	return results, nil
}

func checkProfile(ctx context.Context, dir string, cred credentials.Credential) ProfileCheck {
	res := ProfileCheck{
		Profile:     cred.DisplayName(),
		AccessKeyID: credentials.Obfuscate(cred.AccessKeyID, 4),
	}
	if cred.ProfileName == "" {
		res.Err = errUnnamedProfile
		return res
	}
	shared, err := config.LoadSharedConfigProfile(ctx, cred.ProfileName, func(o *config.LoadSharedConfigOptions) {
		o.CredentialsFiles = []string{paths.CredentialsPath(dir)}
		o.ConfigFiles = []string{paths.SharedConfigPath(dir)}
	})
	if err != nil {
		res.Err = err
		return res
	}
	switch {
	case !shared.Credentials.HasKeys():
		res.Err = errors.New("SDK resolved no static keys")
	case shared.Credentials.AccessKeyID != cred.AccessKeyID:
		res.Err = fmt.Errorf("SDK resolved a different access key %s", credentials.Obfuscate(shared.Credentials.AccessKeyID, 4))
	default:
		res.Resolved = true
	}
	return res
}

func (m *Manager) stageForSDK(dir string) (string, func(), error) {
	tmp, err := os.MkdirTemp("", "aws-switch-check-")
	if err != nil {
		return "", nil, &domain.IOError{Op: "mkdir", Path: os.TempDir(), Err: err}
	}
	cleanup := func() {
		if err := os.RemoveAll(tmp); err != nil {
			m.logger.Warn("failed to remove staging directory", "path", tmp, "error", err)
		}
	}
	for _, src := range []string{paths.CredentialsPath(dir), paths.SharedConfigPath(dir)} {
		data, err := m.storage.ReadFile(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			cleanup()
			return "", nil, &domain.IOError{Op: "read", Path: src, Err: err}
		}
		dst := filepath.Join(tmp, filepath.Base(src))
		if err := os.WriteFile(dst, data, 0o600); err != nil {
			cleanup()
			return "", nil, &domain.IOError{Op: "write", Path: dst, Err: err}
		}
	}
	return tmp, cleanup, nil
}
