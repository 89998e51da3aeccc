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
package controllers

import (
	"fmt"

	v1 "dataplatform.io/integrator-operator/api/v1"
)

const (
	timeLayout                 = "2006-01-02T15.04.05Z"
	lastUpdatedAnnotation      = "integrator-operator.dataplatform.io/last-updated"
	recordingEnabledAnnotation = "integrator-operator.dataplatform.io/record"
	templateHashAnnotation     = "integrator-operator.dataplatform.io/hash"
	backendLabel               = "integrator-operator.dataplatform.io/backend"
	integratorLabel            = "integrator-operator.dataplatform.io/integrator"
	managedByLabel             = "app.kubernetes.io/managed-by"
	operatorName               = "integrator-operator"

	relationFinalizer = "relation.dataplatform.io/finalizer"
	k8sSecretPrefix   = "ref+k8s://"

	integratorRefField = ".spec.integratorRef"
)

// credentialSecretName is the name of the mirrored credential secret for
// one integrator and backend kind pair.
func credentialSecretName(integrator string, backend v1.BackendKind) string {
	return fmt.Sprintf("%s-%s-credentials", integrator, backend)
}
