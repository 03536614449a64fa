package main

import (
	"github.com/mousybusiness/nowplaying/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"os"
)

func main() {
	Execute()
}

var cfg *config.Config

// rootCmd represents the base command, which watches playback
var rootCmd = &cobra.Command{
	Use:   "nowplaying",
	Short: "Show what is playing on Spotify",
	Long: `nowplaying logs in to Spotify with the authorization code + PKCE flow,
keeps the access token fresh and polls the currently playing track every few seconds.`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func Execute() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			log.Info(config.GetVersionInfo())
			os.Exit(0)
		}

		c, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		if err := setupLogging(c.Logging); err != nil {
			return err
		}
		cfg = c
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd, refreshCmd, watchCmd)
}

func setupLogging(c config.LoggingConfig) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch c.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stderr)
	return nil
}
