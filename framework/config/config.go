package config

import (
	"encoding/json"
	"os"
)

var Config *AppConfig

type AppConfig struct {
	AppName       string `json:"app_name" mapstructure:"app_name"`
	TimeOffsetMs  int64  `json:"time_offset_ms" mapstructure:"time_offset_ms"` //时间偏移 毫秒, 调时间用
	LogConfig     `json:",inline" mapstructure:",inline"`
	TimerConfig   `json:",inline" mapstructure:",inline"`
	HttpApiConfig `json:",inline" mapstructure:",inline"`
	IsDebug       bool `json:"is_debug" mapstructure:"is_debug"`
}

type TimerConfig struct {
	TickIntervalMs   int    `json:"tick_interval_ms" mapstructure:"tick_interval_ms"`     //触发协程tick间隔 毫秒
	MaxTimers        int    `json:"max_timers" mapstructure:"max_timers"`                 //存活定时器上限, 0不限制
	LockKind         string `json:"lock_kind" mapstructure:"lock_kind"`                   //mutex 或 spin
	DispatchPoolSize int    `json:"dispatch_pool_size" mapstructure:"dispatch_pool_size"` //>0时回调在协程池并发执行
	TaskChanSize     int    `json:"task_chan_size" mapstructure:"task_chan_size"`         //触发协程闭包邮箱大小
}

type LogConfig struct {
	LogPath       string `json:"log_path" mapstructure:"log_path"`
	LogName       string `json:"log_name" mapstructure:"log_name"`
	LogLevel      string `json:"log_level" mapstructure:"log_level"`
	LogStdOut     bool   `json:"log_std_out" mapstructure:"log_std_out"`
	LogMaxSizeMB  int    `json:"log_max_size_mb" mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups" mapstructure:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days" mapstructure:"log_max_age_days"`
}

type HttpApiConfig struct {
	ApiVersion    string `json:"api_version" mapstructure:"api_version"`
	ApiListenAddr string `json:"api_listen_addr" mapstructure:"api_listen_addr"` //为空时不启动管理接口
}

func LoadConfig(configFile string, loadConfigFromEnv func(*AppConfig) error) error {
	Config = new(AppConfig)
	if len(configFile) != 0 {
		if err := loadConfigFromFile(configFile); err != nil {
			return err
		}
	}
	if loadConfigFromEnv != nil {
		if err := loadConfigFromEnv(Config); err != nil {
			return err
		}
	}
	Config.Default()
	return nil
}

func loadConfigFromFile(configFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, Config)
}

// Default 填充未配置的项
func (conf *AppConfig) Default() {
	if conf.AppName == "" {
		conf.AppName = "timerex"
	}
	if conf.LogName == "" {
		conf.LogName = conf.AppName
	}
	if conf.LogLevel == "" {
		conf.LogLevel = "info"
	}
	if conf.LogMaxSizeMB <= 0 {
		conf.LogMaxSizeMB = 100
	}
	if conf.TickIntervalMs <= 0 {
		conf.TickIntervalMs = 10
	}
	if conf.LockKind == "" {
		conf.LockKind = "mutex"
	}
	if conf.TaskChanSize <= 0 {
		conf.TaskChanSize = 10240
	}
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
