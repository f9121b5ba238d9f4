package config

import "flag"

// Flags holds the global command-line overrides.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	Reverse    bool
}

// RegisterFlags adds the global flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this rotated file")
	fs.BoolVar(&f.Reverse, "reverse", false, "Read and write OBJ faces with reversed winding")
	return f
}

// apply applies flag overrides to cfg.
func (f *Flags) apply(cfg *Config) {
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.Reverse {
		cfg.OBJ.ReverseOrientation = true
	}
}
