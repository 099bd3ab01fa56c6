package main

import (
	"context"
	"fmt"

	"github.com/porticus-lab/bookcapture"
	"github.com/porticus-lab/bookcapture/internal/config"
	"github.com/porticus-lab/bookcapture/internal/observability"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// configKey is the flag annotation naming the configuration key a flag
// overrides.
const configKey = "bookcapture_config_key"

// app holds the state shared by the commands of one invocation.
type app struct {
	fs      afero.Fs
	console zapcore.WriteSyncer
	capture func(ctx context.Context, job bookcapture.Job, opts ...bookcapture.Option) (*bookcapture.Report, error)

	v   *viper.Viper
	log *zap.Logger
}

func newApp() *app {
	return &app{
		fs:      afero.NewOsFs(),
		console: observability.Stderr(),
		capture: func(ctx context.Context, job bookcapture.Job, opts ...bookcapture.Option) (*bookcapture.Report, error) {
			return bookcapture.NewCapturer(opts...).Run(ctx, job)
		},
		log: zap.NewNop(),
	}
}

func newRootCommand(a *app) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "bookcapture",
		Short:         "Capture the pages of an online document viewer",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd.Flags(), cfgFile)
		},
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./bookcapture.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "console", "log format: console or json")
	bindKey(pf, "log-level", "logger.level")
	bindKey(pf, "log-format", "logger.format")

	root.AddCommand(
		newDownloadCommand(a),
		newAssembleCommand(a),
		newInfoCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// bindKey marks flag name as overriding key.
func bindKey(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKey, []string{key}); err != nil {
		panic(err)
	}
}

// prepare builds the viper instance of this invocation from the defaults,
// the configuration file, the environment and every annotated flag.
func (a *app) prepare(flags *pflag.FlagSet, cfgFile string) error {
	v := viper.New()
	config.SetDefaults(v)

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKey]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	})
	if bindErr != nil {
		return fmt.Errorf("binding flags: %w", bindErr)
	}

	if err := config.ReadIn(v, cfgFile); err != nil {
		return err
	}
	a.v = v
	return nil
}

// load validates the prepared configuration and builds the logger.
func (a *app) load() (*config.Config, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}
	a.log = observability.New(cfg.Logger, a.console)
	return cfg, nil
}

func (a *app) close() {
	if err := observability.Sync(a.log); err != nil {
		fmt.Fprintln(a.console, err)
	}
}
