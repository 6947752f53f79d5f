package core

type NonSecretConf struct {
	DevMode              bool
	DisableStdoutLog     bool
	EnableFileLog        bool
	LogDir               string
	LogLevel             string
	LogRotationMaxDays   int
	BackendSettingPath   string
	QueueMaxSize         int
	QueueRefillThreshold int
	ResultDir            string
	WatchDir             string
}

type Info struct {
	Conf *NonSecretConf
}

var CurrentInfo *Info

func SetInfo(c *Conf) {
	conf := &NonSecretConf{
		DevMode:              c.DevMode,
		DisableStdoutLog:     c.DisableStdoutLog,
		EnableFileLog:        c.EnableFileLog,
		LogDir:               c.LogDir,
		LogLevel:             c.LogLevel,
		LogRotationMaxDays:   c.LogRotationMaxDays,
		BackendSettingPath:   c.BackendSettingPath,
		QueueMaxSize:         c.QueueMaxSize,
		QueueRefillThreshold: c.QueueRefillThreshold,
		ResultDir:            c.ResultDir,
		WatchDir:             c.WatchDir,
	}

	CurrentInfo = &Info{
		Conf: conf,
	}
}
