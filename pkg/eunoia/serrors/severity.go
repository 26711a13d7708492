package serrors

import (
	"fmt"
	"strings"

	"eunoia.dev/pkg/eunoia/logging"
)

// Severity ranks how much attention a failure needs.
type Severity int

const (
	Low Severity = iota + 1
	Medium
	High
	Critical
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// LogLevel maps a severity to the level its records are logged at.
func (s Severity) LogLevel() logging.Level {
	switch s {
	case Critical, High:
		return logging.ERROR
	case Medium:
		return logging.WARN
	default:
		return logging.INFO
	}
}

func (s Severity) valid() bool {
	return s >= Low && s <= Critical
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "low":
		*s = Low
	case "medium":
		*s = Medium
	case "high":
		*s = High
	case "critical":
		*s = Critical
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}

	return nil
}
