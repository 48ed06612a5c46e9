package config

// ApplyEnv overrides values from environment variables. lookup is usually
// os.LookupEnv. Empty variables are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, k := range c.keys() {
		raw, ok := lookup(k.env)
		if !ok || raw == "" {
			continue
		}
		if err := k.set(raw); err != nil {
			return err
		}
	}
	return nil
}
