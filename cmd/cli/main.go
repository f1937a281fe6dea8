package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill CLI - notifications, reactions and search from the terminal",
	Long: `Quill CLI talks to a running Quill server.

Configuration comes from flags, QUILL_* environment variables
(QUILL_TOKEN, QUILL_API, QUILL_OUTPUT) or ~/.quill.yaml.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("token", "", "Authentication token (defaults to QUILL_TOKEN)")
	rootCmd.PersistentFlags().String("api", "http://localhost:8787", "API server URL")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text or json")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "Request timeout")

	for _, name := range []string{"token", "api", "output", "timeout"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(reactionsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reindexCmd)
}

func initConfig() {
	viper.SetConfigName(".quill")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetEnvPrefix("QUILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
