package forecast

// Config holds the tunables of the forecasting engine.
type Config struct {
	EngineVersion string
	// Alpha is the exponential smoothing factor (0,1].
	Alpha float64
	// WMAWindow is the trailing window of the weighted moving average.
	WMAWindow int
	// MinHistory is the minimum number of historical points every runner needs.
	MinHistory int
	// TailLength is how many trailing points feed the forecast hash.
	TailLength int
	// MinConfidence and MinGapDays drive the gap forecast reliability gate.
	MinConfidence float64
	MinGapDays    int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		EngineVersion: "1.0.0",
		Alpha:         0.3,
		WMAWindow:     7,
		MinHistory:    7,
		TailLength:    30,
		MinConfidence: 40,
		MinGapDays:    5,
	}
}

// normalized fills zero values with defaults so a partially populated Config is usable.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.EngineVersion == "" {
		c.EngineVersion = def.EngineVersion
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = def.Alpha
	}
	if c.WMAWindow < 2 {
		c.WMAWindow = def.WMAWindow
	}
	if c.MinHistory < 2 {
		c.MinHistory = def.MinHistory
	}
	if c.TailLength <= 0 {
		c.TailLength = def.TailLength
	}
	if c.MinConfidence < 0 {
		c.MinConfidence = def.MinConfidence
	}
	if c.MinGapDays <= 0 {
		c.MinGapDays = def.MinGapDays
	}
	return c
}
