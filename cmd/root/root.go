// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/cfdi-sentinel/internal/config"
	"fjacquet/cfdi-sentinel/internal/container"
	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input     string
	Output    string
	Config    string
	LogLevel  string
	LogFormat string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "cfdi-sentinel",
		Short: "Validate Mexican CFDI electronic invoices for fiscal usability.",
		Long: `cfdi-sentinel checks CFDI 3.3 and 4.0 XML documents against the tax rules
that decide whether an expense can be deducted. It reconciles totals, checks
payroll, payment and Carta Porte complements, consults the 69-B / EFOS lists
and the SAT status service, and reports a traffic-light verdict per document.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  bootstrap,
		PersistentPostRunE: shutdown,
	}

	// SharedFlags holds the persistent flag values.
	SharedFlags = CommonFlags{}

	appContainer *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file or directory")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVar(&SharedFlags.Config, "config", "", "Config file (default searches $HOME/.cfdi-sentinel, .cfdi-sentinel and .)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Override log.format (text, json)")
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	config.LoadEnv(nil)

	configFile := SharedFlags.Config
	if configFile == "" {
		configFile = config.GetEnv("CFDI_CONFIG", "")
	}
	var cfg *config.Config
	var err error
	if configFile == "" {
		cfg, err = config.InitializeConfig()
	} else {
		cfg, err = config.Load(configFile)
	}
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := container.NewContainer(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	SetContainer(c)
	return nil
}

func shutdown(*cobra.Command, []string) error {
	if appContainer == nil {
		return nil
	}
	err := appContainer.Close()
	appContainer = nil
	return err
}

// SetContainer installs c as the application container. Tests use it to
// run subcommands without the bootstrap hook.
func SetContainer(c *container.Container) {
	appContainer = c
}

// GetContainer returns the container built by the root command, or nil
// before bootstrap.
func GetContainer() *container.Container {
	return appContainer
}

// GetLogger returns the container's logger, or a default logger before
// bootstrap.
func GetLogger() logging.Logger {
	if appContainer == nil {
		return logging.OrDefault(nil)
	}
	return appContainer.GetLogger()
}
