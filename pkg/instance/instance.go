// Package instance names the running process in logs and lock ownership.
package instance

import (
	"os"
	"strconv"
	"sync"
)

const idEnv = "AQUAFLOW_WORKER_ID"

var (
	once sync.Once
	id   string
)

// GetID returns AQUAFLOW_WORKER_ID when set, otherwise "<hostname>-<pid>".
// The value is resolved once per process.
func GetID() string {
	once.Do(func() { id = resolve(os.Getenv(idEnv), os.Hostname, os.Getpid()) })
	return id
}

func resolve(explicit string, hostname func() (string, error), pid int) string {
	if explicit != "" {
		return explicit
	}
	host, err := hostname()
	if err != nil || host == "" {
		host = "aquaflow"
	}
	return host + "-" + strconv.Itoa(pid)
}
