package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ConfigType int

const (
	String ConfigType = iota
	Int
	Bool
	Count
)

// Def describes one configuration key, usable as a flag, an environment
// variable (JSTAINT_ prefix, dots as underscores) and a config file entry.
type Def struct {
	Type     ConfigType // default to string
	Key      string
	KeyShort string // only valid in command line arguments, leave empty if not used
	Default  any
	Desc     string
}

var (
	CSource = Def{
		Key:     "source",
		Default: DefaultSource,
		Desc:    "identifier whose argument-less call is a taint source",
	}
	CSink = Def{
		Key:     "sink",
		Default: DefaultSink,
		Desc:    "identifier whose single argument is checked for taint",
	}
)

var (
	CFormat = Def{
		Key:      "format",
		KeyShort: "f",
		Default:  DefaultFormat,
		Desc:     "output format: " + strings.Join(Formats, ", "),
	}
	COutput = Def{
		Key:      "output",
		KeyShort: "o",
		Default:  "",
		Desc:     "write the combined report to this file instead of stdout",
	}
	CWrite = Def{
		Type:     Bool,
		Key:      "write",
		KeyShort: "w",
		Default:  false,
		Desc:     "also write <input>" + OutputSuffix + " next to every input file",
	}
)

var (
	CConcurrency = Def{
		Type:     Int,
		Key:      "concurrency",
		KeyShort: "c",
		Default:  DefaultConcurrency,
		Desc:     "number of inputs and functions analysed in parallel",
	}
)

var (
	CVerbose = Def{
		Type:     Count,
		Key:      "verbose",
		KeyShort: "v",
		Default:  0,
		Desc:     "verbose output (-v debug, -vv trace)",
	}
	CSilent = Def{
		Type:     Bool,
		Key:      "silent",
		KeyShort: "s",
		Default:  false,
		Desc:     "only print the report",
	}
)

var GlobalFlagDefs = []Def{
	CSource,
	CSink,

	CFormat,
	COutput,
	CWrite,

	CConcurrency,

	CVerbose,
	CSilent,
}

// BuildFlagSet creates a flag set declaring every def.
func BuildFlagSet(name string, defs ...Def) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	for _, def := range defs {
		switch def.Type {
		case String:
			if def.KeyShort != "" {
				flagSet.StringP(def.Key, def.KeyShort, def.Default.(string), def.Desc)
			} else {
				flagSet.String(def.Key, def.Default.(string), def.Desc)
			}
		case Int:
			if def.KeyShort != "" {
				flagSet.IntP(def.Key, def.KeyShort, def.Default.(int), def.Desc)
			} else {
				flagSet.Int(def.Key, def.Default.(int), def.Desc)
			}
		case Bool:
			if def.KeyShort != "" {
				flagSet.BoolP(def.Key, def.KeyShort, def.Default.(bool), def.Desc)
			} else {
				flagSet.Bool(def.Key, def.Default.(bool), def.Desc)
			}
		case Count:
			if def.KeyShort != "" {
				flagSet.CountP(def.Key, def.KeyShort, def.Desc)
			} else {
				flagSet.Count(def.Key, def.Desc)
			}
		}
	}
	return flagSet
}

// Bind registers defaults for defs on v and binds the matching flags of fs.
func Bind(v *viper.Viper, fs *pflag.FlagSet, defs ...Def) error {
	for _, def := range defs {
		v.SetDefault(def.Key, def.Default)
		if f := fs.Lookup(def.Key); f != nil {
			if err := v.BindPFlag(def.Key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s to viper: %w", def.Key, err)
			}
		}
	}
	return nil
}

// Load prepares v with the config file and the environment. The config file
// is taken from JSTAINT_CONFIG, falling back to ./jstaint.yaml when present.
func Load(v *viper.Viper) error {
	if configFile, exist := os.LookupEnv("JSTAINT_CONFIG"); exist {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("jstaint")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// it doesn't matter if we don't find the config file, they can be passed via flags or env variables
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("JSTAINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}
