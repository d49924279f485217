package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the trimmed value of k and whether it is set to anything.
func lookup(k string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(k))
	return v, v != ""
}

// envParsed returns parse applied to k, or d when k is unset or malformed.
func envParsed[T any](k string, d T, parse func(string) (T, error)) T {
	v, ok := lookup(k)
	if !ok {
		return d
	}
	out, err := parse(v)
	if err != nil {
		return d
	}
	return out
}

func envStr(k, d string) string {
	if v, ok := lookup(k); ok {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	return envParsed(k, d, strconv.Atoi)
}

func envDur(k string, d time.Duration) time.Duration {
	return envParsed(k, d, time.ParseDuration)
}

func envBool(k string, d bool) bool {
	return envParsed(k, d, parseSwitch)
}

// parseSwitch accepts the usual spellings of an on/off flag.
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a switch value: %q", s)
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
