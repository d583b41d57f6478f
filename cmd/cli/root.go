package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "TILLCLOSE"
	configName = "cli"
	configType = "toml"

	keyURL       = "url"
	keyTimeout   = "timeout"
	keyToken     = "token"
	keyJWTSecret = "jwt_secret"
	keyJSON      = "json"
)

func newRootCmd() *cobra.Command {
	v := newConfig()

	rootCmd := &cobra.Command{
		Use:           "tillclose-cli",
		Short:         "Settle POS shifts from the terminal",
		Long:          "tillclose-cli counts cash, records adjustments and completes POS shift settlements through the tillclose API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keyURL, "http://localhost:8080", "Base URL of the tillclose API")
	flags.Duration(keyTimeout, 10*time.Second, "Request timeout")
	flags.String(keyToken, "", "Bearer token sent with every request")
	flags.Bool(keyJSON, false, "Print raw JSON instead of rendered views")
	_ = v.BindPFlags(flags)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return readConfig(v)
	}

	app := &app{v: v, httpClient: http.DefaultClient}

	rootCmd.AddCommand(
		newBeginCmd(app),
		newShowCmd(app),
		newCountCmd(app),
		newNotesCmd(app),
		newAdjustCmd(app),
		newStatusCmd(app),
		newTendersCmd(app),
		newCompleteCmd(app),
		newHistoryCmd(app),
		newDenominationsCmd(app),
		newTokenCmd(app),
	)

	return rootCmd
}

// newConfig layers flags over TILLCLOSE_* environment variables over an
// optional cli.toml in the user config directory.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "tillclose"))
	}

	return v
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}
