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

// Package webhook carries the admission webhooks: slot capacity and
// immutability checks for relations, defaulting and template checks for
// integrators.
package webhook

import (
	ctrl "sigs.k8s.io/controller-runtime"

	v1 "dataplatform.io/integrator-operator/api/v1"
)

// Setup registers the admission webhooks with the manager.
func Setup(mgr ctrl.Manager) error {
	if err := ctrl.NewWebhookManagedBy(mgr).
		For(&v1.Relation{}).
		WithValidator(&relationAdmission{client: mgr.GetClient()}).
		Complete(); err != nil {
		return err
	}

	return ctrl.NewWebhookManagedBy(mgr).
		For(&v1.DataIntegrator{}).
		WithValidator(&dataIntegratorAdmission{}).
		WithDefaulter(&dataIntegratorAdmission{}).
		Complete()
}
