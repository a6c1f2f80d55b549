package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqt/aqt-connector/pkg/aqtctl/config"
	"github.com/aqt/aqt-connector/pkg/aqtctl/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage aqtctl configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigPathCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		arnicaURL    string
		clientID     string
		secretEnv    string
		tokenStorage string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an aqtctl config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			if arnicaURL != "" {
				cfg.ArnicaURL = arnicaURL
				cfg.OIDC.Audience = arnicaURL
			}
			cfg.ClientID = clientID
			cfg.ClientSecretEnv = secretEnv
			if tokenStorage != "" {
				cfg.TokenStorage = tokenStorage
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&arnicaURL, "arnica-url", "", "ARNICA API URL")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client ID for the client-credentials flow")
	cmd.Flags().StringVar(&secretEnv, "client-secret-env", "", "Environment variable holding the client secret")
	cmd.Flags().StringVar(&tokenStorage, "token-storage", "", "Token storage backend: keychain or file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			view := *rt.cfg
			if view.ClientSecret != "" {
				view.ClientSecret = "REDACTED"
			}
			return output.WriteObject(rt.Writer(), output.FormatYAML, view)
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), rt.configPathValue())
			return nil
		},
	}
}
