package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	App    string `mapstructure:"-"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"-"`
	// Output defaults to stderr so commands can keep stdout for data.
	Output []string `mapstructure:"output"`
}

func NewLogger(c LogConfig) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(c.Level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(c.Output) > 0 {
		cfg.OutputPaths = c.Output
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build(
		zap.Fields(
			zap.String("service", c.App),
			zap.String("env", c.Env),
			zap.String("version", c.Ver),
		),
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ParseLevel falls back to info on anything zap does not understand.
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.Set(s); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
