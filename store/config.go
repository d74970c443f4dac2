package store

// Config holds configuration for the customer stores.
type Config struct {
	// Connection is the identity provider connection customers are created in.
	// Default: "Username-Password-Authentication"
	Connection string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Connection: "Username-Password-Authentication",
	}
}

// validate fills in defaults for unset values.
func (c *Config) validate() {
	if c.Connection == "" {
		c.Connection = "Username-Password-Authentication"
	}
}
