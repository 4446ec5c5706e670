package instance

import "os"

// ID returns the identifier for this process instance. Heroku-style
// dynos expose DYNO; standalone workers may set WORKER_ID instead.
func ID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "local"
}
