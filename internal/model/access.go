package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AccessLevel is a project membership permission level.
type AccessLevel int

const (
	AccessNone       AccessLevel = 0
	AccessGuest      AccessLevel = 10
	AccessReporter   AccessLevel = 20
	AccessDeveloper  AccessLevel = 30
	AccessMaintainer AccessLevel = 40
	AccessOwner      AccessLevel = 50
)

var accessLevelNames = map[AccessLevel]string{
	AccessGuest:      "guest",
	AccessReporter:   "reporter",
	AccessDeveloper:  "developer",
	AccessMaintainer: "maintainer",
	AccessOwner:      "owner",
}

// String returns the lowercase name of the level.
func (a AccessLevel) String() string {
	if name, ok := accessLevelNames[a]; ok {
		return name
	}
	return strconv.Itoa(int(a))
}

// ValidateAccessLevel returns an error if a is not a recognized level.
func ValidateAccessLevel(a AccessLevel) error {
	if _, ok := accessLevelNames[a]; ok {
		return nil
	}
	return fmt.Errorf("invalid access level %d: must be one of 10, 20, 30, 40, 50", a)
}

// ParseAccessLevel accepts numeric levels (as numbers or strings) and level
// names such as "reporter".
func ParseAccessLevel(v any) (AccessLevel, error) {
	var level AccessLevel
	switch val := v.(type) {
	case int:
		level = AccessLevel(val)
	case int64:
		level = AccessLevel(val)
	case float64:
		level = AccessLevel(int(val))
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return AccessNone, fmt.Errorf("invalid access level %q: %w", val, err)
		}
		level = AccessLevel(n)
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		for l, name := range accessLevelNames {
			if name == s {
				return l, nil
			}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return AccessNone, fmt.Errorf("invalid access level %q", val)
		}
		level = AccessLevel(n)
	default:
		return AccessNone, fmt.Errorf("invalid access level %v", v)
	}

	if err := ValidateAccessLevel(level); err != nil {
		return AccessNone, err
	}
	return level, nil
}

// Min returns the lower of two levels.
func (a AccessLevel) Min(b AccessLevel) AccessLevel {
	if b < a {
		return b
	}
	return a
}
