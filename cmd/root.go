package cmd

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zapleads/zapleads/core/config"
)

var rootCmd = &cobra.Command{
	Use:   "zapleads",
	Short: "WhatsApp CRM follow-up and campaign engine",
	Long: `ZapLeads keeps leads warm: it watches conversations that went
quiet, walks them through the configured repescagem ladder and runs
rate-limited bulk campaigns through the messaging gateway.`,
}

func init() {
	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	cobra.OnInitialize(initEnvConfig)
}

// initEnvConfig loads .env (when present) and the structured config.
func initEnvConfig() {
	_ = godotenv.Load()
	viper.AutomaticEnv()

	if _, err := config.LoadConfig(); err != nil {
		logrus.WithError(err).Fatalln("Could not load configuration")
	}

	// Flag-style overrides take precedence over the raw environment.
	if envPort := viper.GetString("app_port"); envPort != "" {
		config.Global.App.Port = envPort
	}
	if viper.GetBool("app_debug") {
		config.Global.App.Debug = true
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if config.Global.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
