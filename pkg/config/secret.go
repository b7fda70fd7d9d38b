package config

// Secret is a string that refuses to print itself. Connection URLs and
// passwords are stored as Secret so that accidental fmt/log/JSON output never
// leaks credentials; call Value to get the raw string at the point of use.
type Secret string

const redacted = "[REDACTED]"

// Value returns the underlying secret string.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret holds a non-empty value.
func (s Secret) IsSet() bool {
	return string(s) != ""
}

// String implements fmt.Stringer and always redacts.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// MarshalJSON redacts the value in any JSON rendering of the settings.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"` + redacted + `"`), nil
}

// SetValue lets cleanenv populate secrets from the environment.
func (s *Secret) SetValue(v string) error {
	*s = Secret(v)
	return nil
}
