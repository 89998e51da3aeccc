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
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	RelayFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "integrator_operator_relay_failures",
			Help: "Number of errors relaying access requests or credentials",
		},
	)
	RelayError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_relay_error",
			Help: "Reports timestamp from when a relation last failed to reconcile",
		}, []string{"relation", "namespace"})
	RelationInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_relation_info",
			Help: "Tracks a relation, timestamp is when its request was last written",
		}, []string{"relation", "namespace", "backend"})
	SecretInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_secret_info",
			Help: "Tracks a mirrored credential secret, timestamp is when it was last updated",
		}, []string{"secret", "namespace"})
	SecretDeletionError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_secret_deletion_error",
			Help: "Timestamp of when a mirrored credential secret could not be deleted",
		}, []string{"secret", "namespace"})
	ProbeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integrator_operator_probe_failures",
			Help: "Number of failed connectivity probes per backend kind",
		}, []string{"backend"})
	ProbeTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_probe_time",
			Help: "Time in ms the last connectivity probe took",
		}, []string{"relation", "namespace"})
	VaultError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_vault_error",
			Help: "Timestamp if the Vault sink is enabled and fails",
		}, []string{"addr"})
	VaultTokenError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "integrator_operator_vault_token_error",
			Help: "Timestamp if the Vault token is invalid or expired",
		}, []string{"addr"})
)

func init() {
	metrics.Registry.MustRegister(
		RelayFailures,
		RelayError,
		RelationInfo,
		SecretInfo,
		SecretDeletionError,
		ProbeFailures,
		ProbeTime,
		VaultError,
		VaultTokenError,
	)
}
