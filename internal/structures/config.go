package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type MonitorConfig struct {
	DataDir        string        `yaml:"dataDir" validate:"required|unixPath"`
	SourceURL      string        `yaml:"sourceUrl" validate:"required"`
	FlushInterval  time.Duration `yaml:"flushInterval" validate:"required|min:1"`
	BackupInterval time.Duration `yaml:"backupInterval"`
	StopTimeout    time.Duration `yaml:"stopTimeout"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
	TTL     int  `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Monitor   MonitorConfig `yaml:"monitor"`
	WebServer Server        `yaml:"webServer"`
	Logger    LoggerConfig  `yaml:"logger"`
	Cache     CacheConfig   `yaml:"cache"`
	Metrics   MetricsConfig `yaml:"metrics"`
}
