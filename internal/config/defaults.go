package config

const (
	defaultLogDir        = "~/.local/share/tunguska/logs"
	defaultLedgerFile    = "ledger.db"
	defaultAccessorKind  = "edump"
	defaultFadeTime      = 50.0
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultNSets         = 1
	defaultTraceTimeZero = "event"
	defaultTraceFactor   = 1.0
)

var (
	defaultFrequencyBand    = []float64{0.01, 0.02, 0.2, 0.4}
	defaultMethods          = []string{"displacement", "velocity"}
	defaultWantedComponents = []string{"BHZ", "BHN", "BHE"}
	defaultComponentMap     = map[string]string{"BHZ": "u", "BHN": "n", "BHE": "e", "BHR": "r", "BHT": "a"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Accessor: Accessor{
			Kind: defaultAccessorKind,
		},
		Restitution: Restitution{
			FadeTime:      defaultFadeTime,
			FrequencyBand: append([]float64(nil), defaultFrequencyBand...),
			Methods:       append([]string(nil), defaultMethods...),
		},
		Kiwi: Kiwi{
			NSets:            defaultNSets,
			TraceTimeZero:    defaultTraceTimeZero,
			TraceFactor:      defaultTraceFactor,
			WantedComponents: append([]string(nil), defaultWantedComponents...),
			ComponentMap:     cloneMap(defaultComponentMap),
		},
		Rapid: Rapid{
			TraceTimeZero: defaultTraceTimeZero,
			TraceFactor:   defaultTraceFactor,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
