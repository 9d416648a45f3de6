package config

import (
	"strings"
)

type EnvVars struct {
	AppName    string `env:"APP_NAME" envDefault:"Shop Client"`
	Env        string `env:"ENV" envDefault:"DEV"`
	DataFolder string `env:"FOLDER" envDefault:"./data"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.LogLevel)
}
