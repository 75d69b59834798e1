package maildir

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// deliveryCounter ensures unique filenames even within the same microsecond.
	deliveryCounter uint64
	// cachedHostname is set once at startup.
	cachedHostname string
)

func init() {
	cachedHostname = getHostname()
}

// generateFilename creates a unique filename for maildir delivery.
// Format: seconds.MmicrosPpid.hostname.random
// Example: 1705678901.M123456P12345.hostname.a1b2c3d4e5f6
func generateFilename() string {
	now := time.Now()
	counter := atomic.AddUint64(&deliveryCounter, 1)
	pid := os.Getpid()

	randomBytes := make([]byte, 6)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("%d.M%dP%d.%s.%d",
			now.Unix(),
			now.Nanosecond()/1000,
			pid,
			cachedHostname,
			counter,
		)
	}

	return fmt.Sprintf("%d.M%dP%dQ%d.%s.%x",
		now.Unix(),
		now.Nanosecond()/1000,
		pid,
		counter,
		cachedHostname,
		randomBytes,
	)
}

// getHostname returns the sanitized system hostname.
func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return sanitizeHostname(hostname)
}

// sanitizeHostname replaces characters that are unsafe in maildir keys.
// ':' separates the key from the info suffix, so it must never appear.
func sanitizeHostname(hostname string) string {
	var b strings.Builder
	b.Grow(len(hostname))
	for _, r := range hostname {
		switch r {
		case '/', ':', '\\':
			b.WriteRune('_')
		case '*', '?', '[', ']', 0:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validKey reports whether id could have been produced by generateFilename.
func validKey(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\:*?[]\x00")
}
