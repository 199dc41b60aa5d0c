package config

// DefaultListenAddr is the loopback address signerd listens on, matching
// original_source/src/config.rs's Config::try_default service_url.
const DefaultListenAddr = "127.0.0.1:29987"

// Defaults returns the daemon's default configuration: loopback-only
// listener, a same origin allow-list (an empty list instead means "any",
// matching the original's unsafe-cors feature flag), secure argon2id cost
// parameters, and error-level logging.
func Defaults() *Config {
	home := DefaultHome()
	return &Config{
		Version:      1,
		Home:         home,
		ListenAddr:   DefaultListenAddr,
		Origins:      []string{"https://app.dolphin.manta.network"},
		AllowRestart: true,
		Networks: NetworksConfig{
			DataDir:   home,
			ParamsDir: home + "/params",
		},
		Security: SecurityConfig{
			ArgonTimeCost:       3,
			ArgonMemoryKiB:      64 * 1024,
			ArgonThreads:        4,
			PasswordRetryMillis: 1000,
			MemoryLock:          true,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  home + "/signerd.log",
		},
	}
}
