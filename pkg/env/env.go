// Package env reads process level settings that are needed before the
// config package has loaded.
package env

import (
	"fmt"
	"os"
	"strings"
)

const instanceIDKey = "IWANYU_INSTANCE_ID"

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if val = strings.TrimSpace(val); val == "" {
		return fallback
	}
	return val
}

// InstanceID names this process in log lines and lock values. It prefers
// IWANYU_INSTANCE_ID, then the hostname, then the pid.
func InstanceID() string {
	if id := Get(instanceIDKey, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fmt.Sprintf("pid-%d", os.Getpid())
}
