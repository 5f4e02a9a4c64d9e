package keepalive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// FileAuthenticator reads a provisioned bearer token from a file on each
// refresh. Kiosk devices are provisioned with a credential file that an
// external agent rotates in place; re-reading it every cycle picks up
// rotations without a restart.
type FileAuthenticator struct {
	Path string

	// TTL bounds how long a read token is considered valid. Zero means
	// the token never expires locally (the gateway still rejects stale
	// ones with 401).
	TTL time.Duration
}

// Refresh implements Authenticator.
func (f *FileAuthenticator) Refresh(ctx context.Context) (string, time.Time, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", time.Time{}, fmt.Errorf("token file %s is empty", f.Path)
	}

	var expiresAt time.Time
	if f.TTL > 0 {
		expiresAt = time.Now().Add(f.TTL)
	}
	return token, expiresAt, nil
}
