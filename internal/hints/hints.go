// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"net"
	"strings"

	"github.com/alnah/go-contentrender/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForConfigNotFound suggests --config or creating a named config in userDir.
func ForConfigNotFound(userDir string) string {
	hint := "use --config /path/to/file.yaml"
	if userDir != "" {
		hint += " or create one in " + userDir
	}
	return format(hint)
}

// ForStoreOpen returns hints for a store backend that failed to open.
func ForStoreOpen(backend, redisAddr string) string {
	var hints []string
	switch backend {
	case "redis":
		if IsInContainer() && isLoopback(redisAddr) {
			hints = append(hints, "inside a container "+redisAddr+" is the container itself; point CONTENTRENDER_REDIS_ADDR at the redis service")
		} else {
			hints = append(hints, "check that redis is reachable at "+redisAddr)
		}
		hints = append(hints, "set CONTENTRENDER_STORE=memory to run without redis")
	case "sqlite":
		hints = append(hints, "check that the directory of store.sqlitePath exists and is writable")
	}
	return formatHints(hints)
}

// ForOutputDirectory returns hints for output write errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound lists the available preview styles. Without a custom
// asset directory it also points at preview.assetPath.
func ForStyleNotFound(available []string, hasCustomDir bool) string {
	var hints []string
	if len(available) > 0 {
		hints = append(hints, "available: "+strings.Join(available, ", "))
	}
	hints = append(hints, "or pass a path to a .css file")
	if !hasCustomDir {
		hints = append(hints, "set preview.assetPath to a directory with styles/<name>.css for custom styles")
	}
	return formatHints(hints)
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
