package auth

import (
	"encoding/json"
	"strconv"
	"time"
)

// Identity is the normalized result of a successful token verification.
type Identity struct {
	Email    string
	Name     string
	Picture  string
	Subject  string
	Audience string
	Expiry   time.Time
}

// tokenInfo mirrors the verification endpoint's response. Google's endpoint
// stringifies every claim, so the numeric and boolean fields tolerate both
// encodings.
type tokenInfo struct {
	Aud              string    `json:"aud"`
	Exp              flexInt64 `json:"exp"`
	Email            string    `json:"email"`
	EmailVerified    flexBool  `json:"email_verified"`
	Name             string    `json:"name"`
	Picture          string    `json:"picture"`
	Sub              string    `json:"sub"`
	ErrorDescription string    `json:"error_description"`
}

type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		var qs string
		if err := json.Unmarshal(data, &qs); err != nil {
			return err
		}
		s = qs
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(n)
	return nil
}

type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*f = true
	default:
		*f = false
	}
	return nil
}
