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
	"context"
	"flag"
	"os"
	"strings"
	"time"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	integratorv1 "dataplatform.io/integrator-operator/api/v1"
	"dataplatform.io/integrator-operator/controllers"
	"dataplatform.io/integrator-operator/vault"
	integratorwebhook "dataplatform.io/integrator-operator/webhook"
	//+kubebuilder:scaffold:imports
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	utilruntime.Must(integratorv1.AddToScheme(scheme))
	//+kubebuilder:scaffold:scheme
}

func main() {
	var metricsAddr string
	var enableLeaderElection bool
	var probeAddr string
	var reconcilePeriod time.Duration
	var probeTimeout time.Duration
	var watchNamespaces string
	var excludeNamespaces string
	var recordChanges bool

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.DurationVar(&reconcilePeriod, "reconcile-period", 5*time.Second, "How often the controller will re-queue integrator-operator events.")
	flag.DurationVar(&probeTimeout, "probe-timeout", 10*time.Second, "How long a backend connectivity check may run before it is abandoned.")
	flag.StringVar(&watchNamespaces, "watch-namespaces", "", "Comma separated list of namespaces that integrator-operator will watch.")
	flag.StringVar(&excludeNamespaces, "exclude-namespaces", "", "Comma separated list of namespaces to ignore.")
	flag.BoolVar(&recordChanges, "record-changes", true, "Records every time a request or credential secret has been updated. You can view them with kubectl describe. "+
		"It may also be disabled globally and enabled per resource via the annotation 'integrator-operator.dataplatform.io/record: \"true\"'")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	nsSlice := func(ns string) []string {
		trimmed := strings.Trim(strings.TrimSpace(ns), "\"")
		return strings.Split(trimmed, ",")
	}
	excludeNs := make(map[string]bool)
	if len(excludeNamespaces) > 0 {
		for _, ns := range nsSlice(excludeNamespaces) {
			excludeNs[ns] = true
		}
	}

	cacheOptions := cache.Options{}
	if len(watchNamespaces) > 0 {
		watched := make(map[string]cache.Config)
		for _, ns := range nsSlice(watchNamespaces) {
			watched[ns] = cache.Config{}
		}
		setupLog.Info("Watching selected namespaces only", "namespaces", nsSlice(watchNamespaces))
		cacheOptions.DefaultNamespaces = watched
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: metricsAddr,
		},
		WebhookServer: webhook.NewServer(webhook.Options{
			Port: 9443,
		}),
		Cache:                  cacheOptions,
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "28f1c9e6.dataplatform.io",
	})
	if err != nil {
		setupLog.Error(err, "unable to start integrator-operator")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = (&controllers.RelationReconciler{
		Client:               mgr.GetClient(),
		Scheme:               mgr.GetScheme(),
		APIReader:            mgr.GetAPIReader(),
		Ctx:                  ctx,
		ReconciliationPeriod: reconcilePeriod,
		ProbeTimeout:         probeTimeout,
		ExcludeNamespaces:    excludeNs,
		RecordChanges:        recordChanges,
		Log:                  ctrl.Log.WithName("controllers").WithName("Relation"),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Relation")
		os.Exit(1)
	}

	if err = (&controllers.DataIntegratorReconciler{
		Client:               mgr.GetClient(),
		Scheme:               mgr.GetScheme(),
		APIReader:            mgr.GetAPIReader(),
		Ctx:                  ctx,
		ReconciliationPeriod: reconcilePeriod,
		ExcludeNamespaces:    excludeNs,
		RecordChanges:        recordChanges,
		Log:                  ctrl.Log.WithName("controllers").WithName("DataIntegrator"),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "DataIntegrator")
		os.Exit(1)
	}

	if err = integratorwebhook.Setup(mgr); err != nil {
		setupLog.Error(err, "unable to set up webhooks")
		os.Exit(1)
	}
	//+kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	if vault.Enabled() {
		if err := vault.Start(); err != nil {
			setupLog.Error(err, "unable authenticate with the secrets backend")
			os.Exit(1)
		}
	}

	setupLog.Info("starting integrator-operator")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running integrator-operator")
		os.Exit(1)
	}
}
