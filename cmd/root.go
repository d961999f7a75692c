package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/expctl/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "expctl",
	Short: "Experiment driver for an external training toolkit",
	Long: `A command line tool that trains every model, trainer, enhancer and loss
combination of an experiment plan with an external trainer, collects the
results over several trials and renders comparison reports.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().String("results-dir", "", "Directory holding experiment outputs (overrides EXPCTL_RESULTS_DIR)")
	rootCmd.PersistentFlags().String("datasets-dir", "", "Directory holding datasets (overrides EXPCTL_DATASETS_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("timeout", "", "Per-invocation timeout of external tools, 0 for none")
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI (overrides EXPCTL_TRACKING_URI)")
	rootCmd.PersistentFlags().String("experiment-id", "", "MLflow experiment ID (overrides EXPCTL_EXPERIMENT_ID)")
	viper.BindPFlag("results_dir", rootCmd.PersistentFlags().Lookup("results-dir"))
	viper.BindPFlag("datasets_dir", rootCmd.PersistentFlags().Lookup("datasets-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", rootCmd.PersistentFlags().Lookup("experiment-id"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("EXPCTL")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			cobra.CheckErr(err)
		}
	}
}
