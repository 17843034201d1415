// Package envutil reads process configuration from environment
// variables. The Must variants exit with a clear message instead of
// returning an error, since a missing or malformed variable means the
// process cannot run at all.
package envutil

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// GetenvDefault returns the value of name, or fallback when unset.
func GetenvDefault(name, fallback string) string {
	if val, ok := os.LookupEnv(name); ok {
		return val
	}
	return fallback
}

// GetenvDefaultInt returns name parsed as an int, or fallback when
// unset. A set but unparseable value exits the process.
func GetenvDefaultInt(name string, fallback int) int {
	val, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	return int(parseInt(name, val))
}

// MustGetenv returns the value of name, exiting when unset.
func MustGetenv(name string) string {
	val, ok := os.LookupEnv(name)
	if !ok {
		log.Fatalf("environment variable %s is required but not set", name)
	}
	return val
}

// MustGetenvInt returns name parsed as an int, exiting when unset or
// unparseable.
func MustGetenvInt(name string) int {
	return int(parseInt(name, MustGetenv(name)))
}

// MustGetenvInt64 is MustGetenvInt for int64 values.
func MustGetenvInt64(name string) int64 {
	return parseInt(name, MustGetenv(name))
}

// MustSetenv sets name to value, panicking when the platform refuses.
func MustSetenv(name, value string) {
	if err := os.Setenv(name, value); err != nil {
		panic(fmt.Errorf("setting environment variable %s: %v", name, err))
	}
}

func parseInt(name, val string) int64 {
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Fatalf("environment variable %s should be an integer: %v", name, err)
	}
	return n
}
