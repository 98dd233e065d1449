//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/server-launcher/internal/domain/launch"
)

// DetectActor gathers host and user information for the run history.
func DetectActor() (*launch.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &launch.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
