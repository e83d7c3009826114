package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watch re-decodes the configuration whenever the file behind v changes and
// hands the result to fn. Invalid edits are logged and skipped; the last
// good configuration stays in effect.
func Watch(v *viper.Viper, logger *zap.Logger, fn func(*Config)) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			logger.Warn("ignoring invalid configuration change",
				zap.String("file", event.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("configuration reloaded", zap.String("file", event.Name))
		fn(cfg)
	})
	v.WatchConfig()
}
