package cmd

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	casfa "github.com/shazhou-ww/casfa-sub008"
	"github.com/shazhou-ww/casfa-sub008/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "casfa",
	Short: "Content-addressed tree diff and merge CLI",
	Long:  "CLI for diffing, merging and pulling content-addressed tree snapshots.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/casfa/config.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default: ~/.local/share/casfa)")
	rootCmd.PersistentFlags().String("namespace", "default", "local store namespace")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CASFA")
	viper.AutomaticEnv()
	viper.SetDefault("cache_dir", defaultCacheDir())

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "casfa")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "casfa")
	}
	return ".casfa"
}

func defaultCacheDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "casfa")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "casfa")
	}
	return ".casfa"
}

func openStore() (*store.LocalStore, error) {
	return store.NewLocalStore(
		afero.NewOsFs(),
		viper.GetString("cache_dir"),
		viper.GetString("namespace"),
		0, // default cache size
		2, // default compression level
	)
}

// resolveKey accepts either a raw content key or a ref name.
func resolveKey(s *store.LocalStore, arg string) (string, error) {
	if casfa.ValidKey(arg) {
		return arg, nil
	}
	return s.GetRef(arg)
}
