package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckProtocolCompatibility checks if the client and trading server protocol
// versions are compatible. Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Client 1.2.0, Server 1.2.0 -> OK (exact match)
//   - Client 1.2.1, Server 1.2.0 -> OK (patch differs)
//   - Client 1.3.0, Server 1.2.0 -> ERROR (minor differs)
//   - Client 2.0.0, Server 1.2.0 -> ERROR (major differs)
//   - Client main, Server 1.2.0 -> OK (dev build, skip check)
//   - Client 1.2.0, Server main -> OK (dev build, skip check)
func CheckProtocolCompatibility(clientVersion, serverVersion string) error {
	// Strip 'v' prefix if present for consistency
	clientVersion = strings.TrimPrefix(clientVersion, "v")
	serverVersion = strings.TrimPrefix(serverVersion, "v")

	// Skip version check for "main" (development builds)
	if clientVersion == "main" || serverVersion == "main" {
		return nil
	}

	clientSemver, err := semver.NewVersion(clientVersion)
	if err != nil {
		return fmt.Errorf("invalid client version '%s': %w", clientVersion, err)
	}

	serverSemver, err := semver.NewVersion(serverVersion)
	if err != nil {
		return fmt.Errorf("invalid server version '%s': %w", serverVersion, err)
	}

	if clientSemver.Major() != serverSemver.Major() {
		return fmt.Errorf("major version mismatch: client is %d.x.x but server runs %d.x.x",
			clientSemver.Major(), serverSemver.Major())
	}

	if clientSemver.Minor() != serverSemver.Minor() {
		return fmt.Errorf("minor version mismatch: client is %d.%d.x but server runs %d.%d.x",
			clientSemver.Major(), clientSemver.Minor(),
			serverSemver.Major(), serverSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
