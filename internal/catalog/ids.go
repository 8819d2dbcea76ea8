package catalog

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenericID produces a collision-resistant fallback identifier: base-36 unix
// millis joined with 5 random base-36 characters, upper-cased.
func GenericID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return strings.ToUpper(ts + "_" + string(suffix))
}

// NextSequentialID scans existing IDs for `{prefix}-NNNN` and returns the
// prefix with the next zero-padded counter; `{prefix}-0001` when none match.
// The prefix is taken literally, so characters special to regexp are safe.
// On any internal failure it falls back to GenericID rather than raising.
func NextSequentialID(existing []string, prefix string) string {
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(prefix) + `-(\d{4})$`)
	if err != nil {
		return GenericID()
	}
	maxNum := 0
	for _, id := range existing {
		m := re.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxNum {
			maxNum = n
		}
	}
	return fmt.Sprintf("%s-%04d", prefix, maxNum+1)
}

// idPrefix maps a record's type field onto its sequential ID namespace.
// Unmatched types get no prefix and fall through to GenericID.
func idPrefix(tableName string, data map[string]any) string {
	switch strings.ToLower(tableName) {
	case "systems":
		switch strings.ToLower(cellString(data["System Type"])) {
		case "internal":
			return "INT"
		case "external":
			return "EXT"
		}
	case "requirements":
		switch strings.ToLower(cellString(data["Type"])) {
		case "functional":
			return "REQ"
		case "non-functional":
			return "NREQ"
		}
	}
	return ""
}
