package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/wire"
)

type ctxKey string

const (
	appKey ctxKey = "app"
	cfgKey ctxKey = "cfg"
)

// configOnly marks commands that need the resolved configuration but no
// native backend, so they also work where the configured backend cannot
// be opened.
const configOnly = "config-only"

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the Cobra root command and wires dependencies.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "binderctl",
		Short:         "Host and inspect binder objects",
		SilenceUsage:  true, // don't show usage on runtime errors
		SilenceErrors: true, // let main print errors once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if cfgPath != "" {
				v.SetConfigFile(cfgPath)
			}
			if err := config.Load(cmd.Context(), v); err != nil {
				return err
			}
			applyFlagOverrides(cmd.Flags(), v)
			ctx := context.WithValue(cmd.Context(), cfgKey, v)
			if cmd.Annotations[configOnly] == "" {
				app, err := wire.BuildApp(ctx, v)
				if err != nil {
					return err
				}
				ctx = context.WithValue(ctx, appKey, app)
			}
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app, ok := cmd.Context().Value(appKey).(*wire.App); ok {
				app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (toml|yaml)")
	cmd.PersistentFlags().String("backend", "", "native backend: loopback or ndk")
	cmd.PersistentFlags().String("socket", "", "debug endpoint socket path")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDumpCmd())
	cmd.AddCommand(newTransactCmd())
	cmd.AddCommand(newObjectsCmd())
	cmd.AddCommand(newClassesCmd())
	cmd.AddCommand(newEchoCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCompletionCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}

func getApp(cmd *cobra.Command) (*wire.App, error) {
	app, ok := cmd.Context().Value(appKey).(*wire.App)
	if !ok {
		return nil, fmt.Errorf("internal error: app not initialized")
	}
	return app, nil
}

func getConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v, ok := cmd.Context().Value(cfgKey).(*viper.Viper)
	if !ok {
		return nil, fmt.Errorf("internal error: config not loaded")
	}
	return v, nil
}
