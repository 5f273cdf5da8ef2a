package session

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel is a control word accepted in place of an index selection.
type Sentinel int

const (
	SentinelNone Sentinel = iota
	SentinelRestart
	SentinelExit
)

// ParseSelection parses a comma-separated list of 1-based indices against
// a list of the given length. The literals "restart" and "exit" are
// accepted in place of indices. Returned indices are de-duplicated and
// sorted highest-first: callers remove entries from the list as they
// process the selection, and the descending order guarantees a removal
// never invalidates a not-yet-processed lower index.
func ParseSelection(input string, length int) ([]int, Sentinel, error) {
	trimmed := strings.TrimSpace(input)

	switch strings.ToLower(trimmed) {
	case "restart":
		return nil, SentinelRestart, nil
	case "exit":
		return nil, SentinelExit, nil
	}

	if trimmed == "" {
		return nil, SentinelNone, errors.New("no indices given")
	}

	seen := make(map[int]struct{})
	indices := []int{}
	for _, token := range strings.Split(trimmed, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, SentinelNone, errors.Errorf("invalid index %q", token)
		}
		if n < 1 || n > length {
			return nil, SentinelNone, errors.Errorf("index %d out of range 1-%d", n, length)
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		indices = append(indices, n)
	}

	if len(indices) == 0 {
		return nil, SentinelNone, errors.New("no indices given")
	}

	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	return indices, SentinelNone, nil
}
