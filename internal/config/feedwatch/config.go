package feedwatch_config

import (
	"errors"
	"time"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/obs"
	pginfra "github.com/NordCoder/Feedwatch/internal/repository/postgres"
)

var ErrConfig = errors.New("invalid configuration")

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type TargetCfg struct {
	Org  string `mapstructure:"org" yaml:"org,omitempty"`
	User string `mapstructure:"user" yaml:"user,omitempty"`
	Repo string `mapstructure:"repo" yaml:"repo,omitempty"`
}

func (t TargetCfg) empty() bool { return t.Org == "" && t.User == "" && t.Repo == "" }

type GitHubCfg struct {
	Token     string        `mapstructure:"token"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PerPage   int           `mapstructure:"per_page"`
}

type PollCfg struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxPages int           `mapstructure:"max_pages"`
}

type StateCfg struct {
	Backend    string `mapstructure:"backend"`
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type KafkaCfg struct {
	Enable            bool          `mapstructure:"enable"`
	Brokers           []string      `mapstructure:"brokers"`
	Topic             string        `mapstructure:"topic"`
	Partitions        int           `mapstructure:"partitions"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
	TopicWait         time.Duration `mapstructure:"topic_wait"`
}

type ServerCfg struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	Target  TargetCfg      `mapstructure:"target"`
	Targets []TargetCfg    `mapstructure:"targets"`
	GitHub  GitHubCfg      `mapstructure:"github"`
	Poll    PollCfg        `mapstructure:"poll"`
	State   StateCfg       `mapstructure:"state"`
	DB      pginfra.Config `mapstructure:"db"`
	Kafka   KafkaCfg       `mapstructure:"kafka"`
	Log     obs.LogConfig  `mapstructure:"log"`
	OTel    obs.OTELConfig `mapstructure:"otel"`
	Server  ServerCfg      `mapstructure:"server"`
}

// PollTargets resolves the configured feeds. The single `target` block and
// the `targets` list may be combined; no selection at all means the public
// timeline.
func (c *Config) PollTargets() ([]activity.Target, error) {
	raw := make([]TargetCfg, 0, len(c.Targets)+1)
	if !c.Target.empty() || len(c.Targets) == 0 {
		raw = append(raw, c.Target)
	}
	raw = append(raw, c.Targets...)

	seen := make(map[string]struct{}, len(raw))
	out := make([]activity.Target, 0, len(raw))
	for _, tc := range raw {
		t, err := activity.NewTarget(tc.Org, tc.User, tc.Repo)
		if err != nil {
			return nil, errors.Join(ErrConfig, err)
		}
		if _, dup := seen[t.String()]; dup {
			continue
		}
		seen[t.String()] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
