package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xamogh/casbin-test/app"
	"github.com/xamogh/casbin-test/config"
	"github.com/xamogh/casbin-test/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the policy gateway server",
	Long: `Start the policy gateway with the specified configuration.
This will start the HTTP server and make it available for client connections.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")

		v := viper.New()
		v.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))
		v.BindPFlag("log.format", cmd.Flags().Lookup("log-format"))
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			v.Set("log.level", "debug")
		}

		cfg, err := config.LoadConfigWithViper(v, configPath)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}

		log.Configure(cfg.Log)

		// a gateway without an engine is not allowed to run; init failure
		// exits so an external supervisor can restart the process
		app, err := app.NewApp(cfg)
		if err != nil {
			slog.Error("Failed to create application", "error", err)
			os.Exit(1)
		}

		if err := app.Serve(); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("config", "", "config file (default is ./config.yaml)")

	serveCmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().String("log-format", "", "Log format (json, text)")
	serveCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (sets log level to debug)")
}
