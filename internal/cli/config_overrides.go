package cli

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps the root flags to the config keys they override.
var flagKeys = map[string]string{
	"backend":   "backend",
	"socket":    "socket_path",
	"log-level": "log.level",
}

// applyFlagOverrides copies the root flags the user set into v. Flags left
// at their default keep whatever the file or environment resolved.
func applyFlagOverrides(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		val := strings.TrimSpace(f.Value.String())
		if key == "backend" || key == "log.level" {
			val = strings.ToLower(val)
		}
		v.Set(key, val)
	})
}
