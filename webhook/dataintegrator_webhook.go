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

package webhook

import (
	"context"
	"strings"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	v1 "dataplatform.io/integrator-operator/api/v1"
	"dataplatform.io/integrator-operator/relay"
)

// log is for logging in this package.
var dataintegratorlog = ctrl.Log.WithName("dataintegrator-webhook")

type dataIntegratorAdmission struct {
}

//+kubebuilder:webhook:path=/mutate-dataplatform-io-v1-dataintegrator,mutating=true,failurePolicy=fail,sideEffects=None,groups=dataplatform.io,resources=dataintegrators,verbs=create;update,versions=v1,name=mdataintegrator.kb.io,admissionReviewVersions=v1

var _ webhook.CustomDefaulter = &dataIntegratorAdmission{}

// Default implements webhook.Defaulter so a webhook will be registered for the type
func (a *dataIntegratorAdmission) Default(ctx context.Context, obj runtime.Object) error {
	integrator := obj.(*v1.DataIntegrator)
	dataintegratorlog.Info("default", "name", integrator.Name)

	// Operators type the entity type in any case, store the canonical
	// spelling so the relay compares against one form
	if integrator.Spec.EntityType != "" {
		integrator.Spec.EntityType = strings.ToUpper(integrator.Spec.EntityType)
	}

	return nil
}

//+kubebuilder:webhook:path=/validate-dataplatform-io-v1-dataintegrator,mutating=false,failurePolicy=fail,sideEffects=None,groups=dataplatform.io,resources=dataintegrators,verbs=create;update,versions=v1,name=vdataintegrator.kb.io,admissionReviewVersions=v1

var _ webhook.CustomValidator = &dataIntegratorAdmission{}

// ValidateCreate implements webhook.Validator so a webhook will be registered for the type
func (a *dataIntegratorAdmission) ValidateCreate(ctx context.Context, newObj runtime.Object) (admission.Warnings, error) {
	integrator := newObj.(*v1.DataIntegrator)
	dataintegratorlog.Info("validate create", "name", integrator.Name)

	return a.validateIntegrator(integrator)
}

// ValidateUpdate implements webhook.Validator so a webhook will be registered for the type
func (a *dataIntegratorAdmission) ValidateUpdate(ctx context.Context, oldObj runtime.Object, newObj runtime.Object) (admission.Warnings, error) {
	integrator := newObj.(*v1.DataIntegrator)
	dataintegratorlog.Info("validate update", "name", integrator.Name)

	return a.validateIntegrator(integrator)
}

// ValidateDelete implements webhook.Validator so a webhook will be registered for the type
func (a *dataIntegratorAdmission) ValidateDelete(ctx context.Context, obj runtime.Object) (admission.Warnings, error) {
	return nil, nil
}

// validateIntegrator rejects secret templates that can never render.
// Relay level configuration problems only become warnings: the object is
// stored and the unit reports blocked until the configuration is
// corrected, matching how the reconcilers treat it.
func (a *dataIntegratorAdmission) validateIntegrator(integrator *v1.DataIntegrator) (admission.Warnings, error) {
	var allErrs field.ErrorList
	var warnings admission.Warnings

	for k, tpl := range integrator.Spec.SecretTemplate {
		if _, err := template.New(k).Funcs(sprig.FuncMap()).Parse(tpl); err != nil {
			allErrs = append(allErrs, field.Invalid(
				field.NewPath("spec").Child("secretTemplate").Key(k),
				tpl,
				err.Error(),
			))
		}
	}

	if err := relay.ValidateConfig(&integrator.Spec, nil); err != nil {
		warnings = append(warnings, err.Error())
	}

	if len(allErrs) > 0 {
		return warnings, allErrs.ToAggregate()
	}
	return warnings, nil
}
