package config

type Config interface {
	EnvConfig
	RelayConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Relay
	Security
}

func New() Config {
	return mainConfig{}
}
