package audiopolicy

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/audio"
	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// Config is the daemon-level configuration, loaded from file and
// environment. Policy timing constants live in the audio package; the
// values here override its defaults when set.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`

	SessionTimeout          time.Duration `mapstructure:"session_timeout"`
	OffloadPipeReleaseDelay time.Duration `mapstructure:"offload_pipe_release_delay"`

	MultichannelSupported bool `mapstructure:"multichannel_supported"`
}

var config = &Config{
	ListenAddr: ":8090",
	LogLevel:   "info",
}

// LoadConfig reads /etc/audiopolicy/audiopolicy.yaml (or ./audiopolicy.yaml),
// applies AUDIOPOLICY_* environment overrides, and pushes the timing
// values into the policy constants.
func LoadConfig() {
	v := viper.New()
	v.SetConfigName("audiopolicy")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/audiopolicy")
	v.AddConfigPath(".")
	v.SetEnvPrefix("audiopolicy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", config.ListenAddr)
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("session_timeout", time.Duration(0))
	v.SetDefault("offload_pipe_release_delay", time.Duration(0))
	v.SetDefault("multichannel_supported", false)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			logger.Warn().Err(err).Msg("config file unreadable, using defaults")
		}
	}
	if err := v.Unmarshal(config); err != nil {
		logger.Warn().Err(err).Msg("config unmarshal failed, using defaults")
		return
	}

	logging.SetLevel(config.LogLevel)

	if config.SessionTimeout > 0 || config.OffloadPipeReleaseDelay > 0 {
		constants := *audio.GetConfig()
		if config.SessionTimeout > 0 {
			constants.SessionTimeout = config.SessionTimeout
		}
		if config.OffloadPipeReleaseDelay > 0 {
			constants.OffloadPipeReleaseDelay = config.OffloadPipeReleaseDelay
		}
		audio.UpdateConfig(&constants)
	}
}
