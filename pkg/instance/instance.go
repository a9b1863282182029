package instance

import "os"

// GetID identifies this process in startup logs.
// CATCHY_INSTANCE_ID wins, then the host name.
func GetID() string {
	if id := os.Getenv("CATCHY_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
