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
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	v1 "dataplatform.io/integrator-operator/api/v1"
	"dataplatform.io/integrator-operator/relay"
)

// log is for logging in this package.
var relationlog = ctrl.Log.WithName("relation-webhook")

type relationAdmission struct {
	client client.Client
}

//+kubebuilder:webhook:path=/validate-dataplatform-io-v1-relation,mutating=false,failurePolicy=fail,sideEffects=None,groups=dataplatform.io,resources=relations,verbs=create;update,versions=v1,name=vrelation.kb.io,admissionReviewVersions=v1

var _ webhook.CustomValidator = &relationAdmission{}

// ValidateCreate implements webhook.Validator so a webhook will be registered for the type
func (a *relationAdmission) ValidateCreate(ctx context.Context, newObj runtime.Object) (admission.Warnings, error) {
	rel := newObj.(*v1.Relation)
	relationlog.Info("validate create", "name", rel.Name)

	allErrs := a.validateRelation(rel)

	// Each backend kind has a single slot per integrator
	if len(allErrs) == 0 {
		var siblings v1.RelationList
		if err := a.client.List(ctx, &siblings, client.InNamespace(rel.Namespace)); err != nil {
			return nil, err
		}
		for i := range siblings.Items {
			other := &siblings.Items[i]
			if other.Name == rel.Name || !other.ObjectMeta.DeletionTimestamp.IsZero() {
				continue
			}
			if other.Spec.IntegratorRef == rel.Spec.IntegratorRef && other.Spec.Backend == rel.Spec.Backend {
				allErrs = append(allErrs, field.Forbidden(
					field.NewPath("spec").Child("backend"),
					fmt.Sprintf("a %s relation for %s already exists (%s)", rel.Spec.Backend, rel.Spec.IntegratorRef, other.Name),
				))
				break
			}
		}
	}

	if len(allErrs) > 0 {
		return nil, allErrs.ToAggregate()
	}
	return nil, nil
}

// ValidateUpdate implements webhook.Validator so a webhook will be registered for the type
func (a *relationAdmission) ValidateUpdate(ctx context.Context, oldObj runtime.Object, newObj runtime.Object) (admission.Warnings, error) {
	rel := newObj.(*v1.Relation)
	relationlog.Info("validate update", "name", rel.Name)

	oldRel := oldObj.(*v1.Relation)

	allErrs := a.validateRelation(rel)

	if rel.Spec.Backend != oldRel.Spec.Backend {
		allErrs = append(allErrs, field.Invalid(
			field.NewPath("spec").Child("backend"),
			rel.Spec.Backend,
			"backend kind cannot be changed after creation",
		))
	}
	if rel.Spec.IntegratorRef != oldRel.Spec.IntegratorRef {
		allErrs = append(allErrs, field.Invalid(
			field.NewPath("spec").Child("integratorRef"),
			rel.Spec.IntegratorRef,
			"integrator reference cannot be changed after creation",
		))
	}

	if len(allErrs) > 0 {
		return nil, allErrs.ToAggregate()
	}
	return nil, nil
}

// ValidateDelete implements webhook.Validator so a webhook will be registered for the type
func (a *relationAdmission) ValidateDelete(ctx context.Context, obj runtime.Object) (admission.Warnings, error) {
	rel := obj.(*v1.Relation)
	relationlog.Info("validate delete", "name", rel.Name)

	warnings := admission.Warnings{
		"Breaking a relation revokes the issued credentials and removes the mirrored secret.",
	}
	return warnings, nil
}

func (a *relationAdmission) validateRelation(rel *v1.Relation) field.ErrorList {
	var allErrs field.ErrorList

	if !relay.Known(rel.Spec.Backend) {
		allErrs = append(allErrs, field.NotSupported(
			field.NewPath("spec").Child("backend"),
			rel.Spec.Backend,
			relay.Kinds(),
		))
	}
	if rel.Spec.IntegratorRef == "" {
		allErrs = append(allErrs, field.Required(
			field.NewPath("spec").Child("integratorRef"),
			"the integrator this relation belongs to is required",
		))
	}
	return allErrs
}
