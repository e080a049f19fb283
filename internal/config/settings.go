package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Backend names accepted by -backend.
const (
	BackendWindow   = "window"
	BackendTerminal = "terminal"
)

// Settings is the runtime configuration picked by whoever launches the
// program. Simulation tuning is not part of it.
type Settings struct {
	Backend      string
	Width        int
	Height       int
	Night        bool
	Sound        bool
	ChimeFile    string
	Seed         int64
	LogLevel     string
	LogFormat    string
	MetricsAddr  string
	Tracing      string // off | stdout | otlp
	OTLPEndpoint string
	TraceRatio   float64
}

// resolver describes how a single setting is resolved.
type resolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*Settings, string) error
}

func resolvers() []resolver {
	return []resolver{
		{
			flagName:    "backend",
			envVarName:  "SYNAPSE_BACKEND",
			defaultVal:  BackendWindow,
			description: "output backend: window or terminal",
			setter: func(s *Settings, v string) error {
				v = strings.ToLower(v)
				if v != BackendWindow && v != BackendTerminal {
					return fmt.Errorf("unknown backend %q", v)
				}
				s.Backend = v
				return nil
			},
		},
		{
			flagName:    "width",
			envVarName:  "SYNAPSE_WIDTH",
			defaultVal:  strconv.Itoa(WindowWidth),
			description: "initial window width in pixels",
			setter:      intSetter(func(s *Settings, n int) { s.Width = n }),
		},
		{
			flagName:    "height",
			envVarName:  "SYNAPSE_HEIGHT",
			defaultVal:  strconv.Itoa(WindowHeight),
			description: "initial window height in pixels",
			setter:      intSetter(func(s *Settings, n int) { s.Height = n }),
		},
		{
			flagName:    "night",
			envVarName:  "SYNAPSE_NIGHT",
			defaultVal:  "true",
			description: "start with the night palette",
			setter:      boolSetter(func(s *Settings, b bool) { s.Night = b }),
		},
		{
			flagName:    "sound",
			envVarName:  "SYNAPSE_SOUND",
			defaultVal:  "false",
			description: "play a soft chime when signals arrive",
			setter:      boolSetter(func(s *Settings, b bool) { s.Sound = b }),
		},
		{
			flagName:    "chime-file",
			envVarName:  "SYNAPSE_CHIME_FILE",
			defaultVal:  "",
			description: "wav, mp3 or flac sample used as the chime instead of the built-in tone",
			setter:      func(s *Settings, v string) error { s.ChimeFile = v; return nil },
		},
		{
			flagName:    "seed",
			envVarName:  "SYNAPSE_SEED",
			defaultVal:  "0",
			description: "random seed; 0 seeds from the clock",
			setter: func(s *Settings, v string) error {
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid seed %q: %w", v, err)
				}
				s.Seed = n
				return nil
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "LOG_LEVEL",
			defaultVal:  "info",
			description: "log level: debug, info, warn, error",
			setter:      func(s *Settings, v string) error { s.LogLevel = v; return nil },
		},
		{
			flagName:    "log-format",
			envVarName:  "LOG_FORMAT",
			defaultVal:  "text",
			description: "log format: text or json",
			setter:      func(s *Settings, v string) error { s.LogFormat = v; return nil },
		},
		{
			flagName:    "metrics-addr",
			envVarName:  "SYNAPSE_METRICS_ADDR",
			defaultVal:  "",
			description: "serve prometheus metrics on this address (e.g. :9090); empty disables",
			setter:      func(s *Settings, v string) error { s.MetricsAddr = v; return nil },
		},
		{
			flagName:    "tracing",
			envVarName:  "SYNAPSE_TRACING",
			defaultVal:  "off",
			description: "frame tracing exporter: off, stdout or otlp",
			setter: func(s *Settings, v string) error {
				v = strings.ToLower(v)
				switch v {
				case "off", "stdout", "otlp":
					s.Tracing = v
					return nil
				}
				return fmt.Errorf("unknown tracing exporter %q", v)
			},
		},
		{
			flagName:    "otlp-endpoint",
			envVarName:  "SYNAPSE_OTLP_ENDPOINT",
			defaultVal:  "localhost:4317",
			description: "OTLP gRPC endpoint used when -tracing=otlp",
			setter:      func(s *Settings, v string) error { s.OTLPEndpoint = v; return nil },
		},
		{
			flagName:    "trace-ratio",
			envVarName:  "SYNAPSE_TRACE_RATIO",
			defaultVal:  "0.05",
			description: "fraction of frames traced when tracing is on",
			setter: func(s *Settings, v string) error {
				r, err := strconv.ParseFloat(v, 64)
				if err != nil || r < 0 || r > 1 {
					return fmt.Errorf("invalid ratio %q", v)
				}
				s.TraceRatio = r
				return nil
			},
		},
	}
}

func intSetter(set func(*Settings, int)) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid size %q", v)
		}
		set(s, n)
		return nil
	}
}

func boolSetter(set func(*Settings, bool)) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", v, err)
		}
		set(s, b)
		return nil
	}
}

// Load resolves settings from command line arguments, then environment
// variables, then defaults. getenv is usually os.Getenv.
func Load(name string, args []string, getenv func(string) string, usage io.Writer) (Settings, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if usage != nil {
		fs.SetOutput(usage)
	}

	rs := resolvers()
	flagVars := make(map[string]*string, len(rs))
	for _, r := range rs {
		flagVars[r.flagName] = fs.String(r.flagName, "", r.description)
	}
	if err := fs.Parse(args); err != nil {
		return Settings{}, err
	}

	var s Settings
	for _, r := range rs {
		var value string
		if v := *flagVars[r.flagName]; v != "" {
			value = v
		} else if env := getenv(r.envVarName); env != "" {
			value = env
		} else {
			value = r.defaultVal
		}
		if err := r.setter(&s, value); err != nil {
			return Settings{}, fmt.Errorf("-%s: %w", r.flagName, err)
		}
	}
	return s, nil
}
