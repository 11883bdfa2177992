package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/bcdannyboy/cmdty/config"
)

var log = logrus.WithField("component", "cmd")

var RootCmd = &cobra.Command{
	Use:   "cmdty",
	Short: "commodity spot price models",
	Long:  "build trinomial trees and simulate multi-factor spot prices consistent with a forward curve",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(viper.GetString("dotenv")); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return errors.Wrap(err, "load dotenv")
		}

		logger := logrus.StandardLogger()
		logger.SetFormatter(&prefixed.TextFormatter{FullTimestamp: true})
		if viper.GetBool("debug") {
			logger.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().Bool("debug", false, "debug flag")
	RootCmd.PersistentFlags().String("config", "", "config file")
	RootCmd.PersistentFlags().String("dotenv", ".env", "dotenv file holding CMDTY_ overrides")
	RootCmd.PersistentFlags().StringP("output", "o", "", "report format: table, json or yaml")

	// Once the flags are defined, we can bind config keys with flags.
	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		log.WithError(err).Errorf("failed to bind persistent flags. please check the flag settings.")
	}
}

// loadConfig reads the file named by --config and applies the --output
// override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if out := viper.GetString("output"); out != "" {
		cfg.Output = out
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil && !viper.GetBool("debug") {
		logrus.SetLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Execute() {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.WithError(err).Fatalf("cannot execute command")
	}
}
