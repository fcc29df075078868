package packer

import "fmt"

const redacted = "[REDACTED]"

// Secret holds sensitive text. It never prints its value; call Reveal to read
// it.
type Secret string

// Reveal returns the underlying value.
func (s Secret) Reveal() string {
	return string(s)
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// Format keeps the value out of every fmt verb, including %s and %q.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Credentials identifies this service to the packing API.
type Credentials interface {
	Username() string
	APIKey() Secret
}

// StaticCredentials is a fixed username and key, typically read from the
// environment at startup.
type StaticCredentials struct {
	User string
	Key  Secret
}

func (c StaticCredentials) Username() string {
	return c.User
}

func (c StaticCredentials) APIKey() Secret {
	return c.Key
}
