/*
Copyright 2025 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jerry-enebeli/vanta"
	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Vanta represents the CLI application, encapsulating the root Cobra command.
type Vanta struct {
	cmd *cobra.Command
}

// vantaInstance holds the service instance and its configuration so every
// subcommand runs against the same datasource and chain client.
type vantaInstance struct {
	vanta *vanta.Vanta
	cnf   *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service instance before
// running any command.
func preRun(app *vantaInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newVanta, err := setupVanta(cnf)
		if err != nil {
			log.Fatal(err)
		}

		app.vanta = newVanta
		app.cnf = cnf

		return nil
	}
}

// setupVanta creates and initializes a new service instance based on the
// provided configuration. It connects to the link ledger using the
// configuration settings.
func setupVanta(cfg *config.Configuration) (*vanta.Vanta, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newVanta, err := vanta.NewVanta(db)
	if err != nil {
		return nil, fmt.Errorf("error creating vanta: %v", err)
	}
	return newVanta, nil
}

// NewCLI creates the command-line interface for the application. It sets up
// the root command and the server, worker, link, backup and config subcommands.
func NewCLI() *Vanta {
	var configFile string
	v := &vantaInstance{}

	var rootCmd = &cobra.Command{
		Use:   "vanta",
		Short: "Private transfer links",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./vanta.json", "Configuration file for vanta")

	rootCmd.PersistentPreRunE = preRun(v, &configFile)

	rootCmd.AddCommand(serverCommands(v))
	rootCmd.AddCommand(workerCommands(v))
	rootCmd.AddCommand(linkCommands(v))
	rootCmd.AddCommand(backupCommands(v))
	rootCmd.AddCommand(configCommands())

	return &Vanta{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Vanta) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
