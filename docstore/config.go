package docstore

// Config holds configuration for the DynamoDB backend.
type Config struct {
	// Table is the DynamoDB table holding every kind.
	// Default: "customer_api_entities"
	//
	// The table needs a string partition key "pk" and a string sort key "sk".
	// Stream processing of cascades requires a stream with at least KEYS_ONLY.
	Table string
}

// DefaultConfig returns the default backend configuration.
func DefaultConfig() Config {
	return Config{
		Table: "customer_api_entities",
	}
}

// validate fills in defaults for unset values.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "customer_api_entities"
	}
}
