package config

import "encoding/json"

// SensitiveString wraps a configuration value that must never be
// rendered verbatim in logs, JSON, or String() output — API keys,
// database passwords, object-store secrets.
type SensitiveString string

// String redacts non-empty values; an empty value stays empty so that
// unset secrets don't clutter diagnostics with a misleading marker.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the underlying secret, for callers that actually need to
// use it (HTTP clients, DB drivers).
func (s SensitiveString) Value() string {
	return string(s)
}

// MarshalJSON redacts the same way String does.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the raw secret value; redaction is a write-path
// concern only.
func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}
