package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const configFileName = "speckle.yml"

var configTemplate = `speckle:
  server_url: %s
  # Leave the token empty to read it from the SPECKLE_TOKEN environment
  # variable instead.
  token: %q
  fetch_timeout: 30s
  max_retries: 3

server:
  host: localhost
  port: %d
  request_timeout: 60s

store:
  backend: %s
  redis:
    addr: localhost:6379
    ttl: 24h
  sqlite:
    path: speckle-objects.db

log:
  level: info
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a speckle.yml configuration file",
	Long:  "Interactively create a speckle.yml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		successColor := color.New(color.FgGreen, color.Bold)
		infoColor := color.New(color.FgCyan)

		if _, err := os.Stat(configFileName); err == nil {
			overwrite := false
			prompt := &survey.Confirm{
				Message: configFileName + " already exists. Overwrite?",
			}
			if err := survey.AskOne(prompt, &overwrite); err != nil {
				return err
			}
			if !overwrite {
				infoColor.Println("Keeping the existing configuration.")
				return nil
			}
		}

		serverURL := "https://app.speckle.systems"
		if err := survey.AskOne(&survey.Input{
			Message: "Speckle server URL:",
			Default: serverURL,
		}, &serverURL, survey.WithValidator(survey.Required)); err != nil {
			return err
		}

		token := ""
		if err := survey.AskOne(&survey.Password{
			Message: "Personal access token (leave empty to use SPECKLE_TOKEN):",
		}, &token); err != nil {
			return err
		}

		port := "8080"
		if err := survey.AskOne(&survey.Input{
			Message: "HTTP listen port:",
			Default: port,
		}, &port); err != nil {
			return err
		}
		portNum := 0
		if _, err := fmt.Sscanf(port, "%d", &portNum); err != nil || portNum < 1 || portNum > 65535 {
			return fmt.Errorf("invalid port: %s", port)
		}

		backend := "memory"
		if err := survey.AskOne(&survey.Select{
			Message: "Shared object store backend:",
			Options: []string{"memory", "redis", "sqlite", "none"},
			Default: backend,
		}, &backend); err != nil {
			return err
		}

		content := fmt.Sprintf(configTemplate, serverURL, token, portNum, backend)
		if err := os.WriteFile(configFileName, []byte(content), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", configFileName, err)
		}

		successColor.Printf("Created %s\n", configFileName)
		infoColor.Println("Start the server with: speckle-mcp serve")
		return nil
	},
}
