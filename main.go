package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"visor-api/config"
	"visor-api/notify"
	"visor-api/storage"
)

var Version = "dev"

var dataDir string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "visor",
		Short:         "Local task and log manager with an HTTP API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding data.json (default $VISOR_DATA_DIR or ~/.visor)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(documentCmd())
	rootCmd.AddCommand(statusCmd())
	return rootCmd
}

// loadConfig reads the environment and applies the global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

// runtime bundles the collaborators shared by every command.
type runtime struct {
	cfg       config.Config
	logger    *log.Logger
	docs      *storage.Documents
	redis     *redis.Client
	publisher *notify.RedisPublisher
}

// newRuntime wires the file store to the notifiers. Extra notifiers, such as
// the SSE broker, receive the change signal before Redis does.
func newRuntime(cfg config.Config, extra ...notify.Notifier) *runtime {
	rt := &runtime{cfg: cfg, logger: cfg.NewLogger()}
	notifiers := append([]notify.Notifier{}, extra...)
	if cfg.RedisURL != "" {
		rt.redis = redis.NewClient(notify.ParseRedisOptions(cfg.RedisURL))
		rt.publisher = notify.NewRedisPublisher(rt.redis, cfg.NotifyChannel, rt.logger)
		notifiers = append(notifiers, rt.publisher)
	}
	store := storage.NewFileStore(cfg.DataDir, rt.logger)
	rt.docs = storage.NewDocuments(store, notify.Multi(notifiers...), rt.logger)
	return rt
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.WithError(err).Warn("close redis client")
		}
	}
}
