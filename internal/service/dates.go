package service

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseOrMin parses a provider timestamp in any common layout and returns it
// in UTC. Values without a zone are read as UTC. Unparseable or empty input
// yields the zero time, which orders before every real date.
func ParseOrMin(s string) (t time.Time) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	defer func() {
		if recover() != nil {
			t = time.Time{}
		}
	}()

	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
