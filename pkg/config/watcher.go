package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchClinic reloads the clinic section of the config file whenever it
// changes on disk, so the service menu can be extended without a restart.
// Close the returned watcher to stop.
func WatchClinic(path string, menu *ServiceMenu, log *slog.Logger) (*fsnotify.Watcher, error) {
	if log == nil {
		log = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	// watch the directory: editors replace files rather than writing in place
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				clinic, err := reloadClinic(path)
				if err != nil {
					log.Error("config reload failed", slog.String("path", path), slog.Any("error", err))
					continue
				}

				menu.Update(clinic)
				log.Info("service menu reloaded",
					slog.String("path", path),
					slog.Int("services", len(clinic.Services)),
				)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("config watcher error", slog.Any("error", err))
			}
		}
	}()

	return watcher, nil
}

func reloadClinic(path string) (ClinicConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return ClinicConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return ClinicConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Clinic.Services) == 0 {
		return ClinicConfig{}, fmt.Errorf("clinic config in %s has no services", path)
	}

	return cfg.Clinic, nil
}
