package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// RegisterFlags defines a flag for every configuration key on fs.
// Flag defaults are only shown in help; ApplyFlags copies a flag into the
// config only when it was set on the command line.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, k := range Default().keys() {
		switch p := k.ptr.(type) {
		case *string:
			fs.String(k.name, *p, k.usage)
		case *int:
			fs.Int(k.name, *p, k.usage)
		case *float64:
			fs.Float64(k.name, *p, k.usage)
		case *bool:
			fs.Bool(k.name, *p, k.usage)
		}
	}
}

// ApplyFlags overrides values with flags that were set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	for _, k := range c.keys() {
		f := fs.Lookup(k.name)
		if f == nil || !f.Changed {
			continue
		}
		if err := k.set(f.Value.String()); err != nil {
			return fmt.Errorf("flag --%s: %w", k.name, err)
		}
	}
	return nil
}
