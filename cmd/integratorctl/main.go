/*
Copyright 2025 Dataplatform.IO.

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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	integratorv1 "dataplatform.io/integrator-operator/api/v1"
)

var (
	scheme = runtime.NewScheme()
	slog   = zap.NewNop().Sugar()
)

func init() {
	_ = clientgoscheme.AddToScheme(scheme)
	_ = integratorv1.AddToScheme(scheme)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	slog = logger.Sugar()

	rootCmd := &cobra.Command{
		Use:           "integratorctl",
		Short:         "Query credentials relayed by integrator-operator",
		Long:          "A read-only client for the credentials and relation state an integrator has negotiated with its related data platforms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newGetCredentialsCmd())
	rootCmd.AddCommand(newStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newGetCredentialsCmd creates the get-credentials command
func newGetCredentialsCmd() *cobra.Command {
	var name, namespace string

	cmd := &cobra.Command{
		Use:   "get-credentials",
		Short: "Print the credential bag of every established relation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return runGetCredentials(cmd.Context(), c, name, namespace, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "DataIntegrator name")
	cmd.Flags().StringVar(&namespace, "namespace", "default", "DataIntegrator namespace")
	cmd.MarkFlagRequired("name")

	return cmd
}

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	var name, namespace string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the phase, message and relation slots of an integrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), c, name, namespace, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "DataIntegrator name")
	cmd.Flags().StringVar(&namespace, "namespace", "default", "DataIntegrator namespace")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newClient() (client.Client, error) {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		slog.Errorw("unable to load the cluster configuration", "error", err)
		return nil, err
	}
	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		slog.Errorw("unable to create the cluster client", "error", err)
		return nil, err
	}
	return c, nil
}
