package core

type Conf struct {
	Version              string `long:"version" description:"version of the engine" env:"PHASE_ENGINE_VERSION"`
	DevMode              bool   `long:"dev-mode" description:"run in dev mode" env:"PHASE_ENGINE_DEV_MODE"`
	DisableStdoutLog     bool   `long:"disable-stdout-log" description:"do not log in standard output" env:"PHASE_ENGINE_DISABLE_STDOUT_LOG"`
	EnableFileLog        bool   `long:"enable-file-log" description:"enable log in file" env:"PHASE_ENGINE_ENABLE_FILE_LOG"`
	LogDir               string `long:"log-dir" description:"rotating log file dir" default:"./shares/logs" env:"PHASE_ENGINE_LOG_DIR"`
	LogLevel             string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" env:"PHASE_ENGINE_LOG_LEVEL"`
	LogRotationMaxDays   int    `long:"log-rotation-max-days" description:"max days of log rotation" default:"7" env:"PHASE_ENGINE_LOG_ROTATION_MAX_DAYS"`
	BackendSettingPath   string `long:"backend-setting-path" description:"backend setting file path" default:"./backend_setting.toml" env:"PHASE_ENGINE_BACKEND_SETTING_PATH"`
	QueueMaxSize         int    `long:"queue-max-size" description:"queue max size" default:"100" env:"PHASE_ENGINE_QUEUE_MAX_SIZE"`
	QueueRefillThreshold int    `long:"queue-refill-threshold" description:"queue refill threshold" default:"10" env:"PHASE_ENGINE_QUEUE_REFILL_THRESHOLD"`
	ResultDir            string `long:"result-dir" description:"job result file dir, empty keeps results in memory only" env:"PHASE_ENGINE_RESULT_DIR"`
	WatchDir             string `long:"watch-dir" description:"job spec watch dir" default:"./jobs" env:"PHASE_ENGINE_WATCH_DIR"`
	Seed                 int64  `long:"seed" description:"sampling seed, 0 uses wall clock" env:"PHASE_ENGINE_SEED"`
	SettingPath          string `long:"setting-path" description:"setting file path" default:"./setting/setting.toml" env:"PHASE_ENGINE_SETTING_PATH"`
}
