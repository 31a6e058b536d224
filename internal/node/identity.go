// Package node resolves the host identity cronsmith compiles against: a
// stable node name (the splay seed source) and a platform identifier (the
// cron backend key).
package node

import (
	"os"
	"runtime"
	"strings"
)

const osReleasePath = "/etc/os-release"

// Identity is probed once at startup and treated as immutable; cron entries
// should not move around because a transient probe changed its mind.
type Identity struct {
	// Name is the stable node identifier. Hosts sharing a schedule get
	// distinct splay delays because their names hash differently.
	Name string

	// Platform is the backend lookup key, e.g. "ubuntu", "solaris".
	Platform string

	// Family is the coarse OS family (runtime.GOOS); used as a fallback
	// key when the distro identifier has no backend mapping.
	Family string
}

// Detect resolves the node identity. Explicit overrides win; otherwise the
// hostname and the running platform are probed.
func Detect(nameOverride, platformOverride string) (Identity, error) {
	id := Identity{
		Name:     strings.TrimSpace(nameOverride),
		Platform: strings.TrimSpace(platformOverride),
		Family:   runtime.GOOS,
	}

	if id.Name == "" {
		host, err := os.Hostname()
		if err != nil {
			return Identity{}, err
		}
		id.Name = host
	}

	if id.Platform == "" {
		id.Platform = detectPlatform()
	}
	return id, nil
}

func detectPlatform() string {
	if runtime.GOOS != "linux" {
		return runtime.GOOS
	}
	if dist := osReleaseID(osReleasePath); dist != "" {
		return dist
	}
	return "linux"
}

// osReleaseID extracts the ID= value from an os-release file.
// Missing file or missing key both return "".
func osReleaseID(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ID=") {
			continue
		}
		v := strings.TrimPrefix(line, "ID=")
		v = strings.Trim(v, `"'`)
		return strings.ToLower(strings.TrimSpace(v))
	}
	return ""
}
