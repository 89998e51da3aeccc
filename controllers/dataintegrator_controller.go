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
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	v1 "dataplatform.io/integrator-operator/api/v1"
	"dataplatform.io/integrator-operator/relay"
)

// DataIntegratorReconciler reconciles a DataIntegrator object
type DataIntegratorReconciler struct {
	client.Client
	Scheme               *runtime.Scheme
	Log                  logr.Logger
	Ctx                  context.Context
	APIReader            client.Reader
	ReconciliationPeriod time.Duration
	ExcludeNamespaces    map[string]bool
	RecordChanges        bool
	Recorder             record.EventRecorder
}

//+kubebuilder:rbac:groups=dataplatform.io,resources=dataintegrators,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=dataplatform.io,resources=dataintegrators/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=dataplatform.io,resources=dataintegrators/finalizers,verbs=update
//+kubebuilder:rbac:groups=dataplatform.io,resources=relations,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile is part of the main kubernetes reconciliation loop which aims to
// move the current state of the cluster closer to the desired state.
//
// For more details, check Reconcile and its Result here:
// - https://pkg.go.dev/sigs.k8s.io/controller-runtime@v0.19.1/pkg/reconcile
func (r *DataIntegratorReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	_ = log.FromContext(ctx)

	var integrator v1.DataIntegrator

	err := r.Get(ctx, req.NamespacedName, &integrator)
	if err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	if r.shouldExclude(integrator.Namespace) {
		r.Log.Info("Namespace requested is in the exclusion list, ignoring", "excluded_namespaces", r.ExcludeNamespaces)
		return ctrl.Result{}, nil
	}

	var relations v1.RelationList
	if err := r.List(ctx, &relations, client.InNamespace(integrator.Namespace),
		client.MatchingFields{integratorRefField: integrator.Name}); err != nil {
		return ctrl.Result{}, err
	}

	newStatus := r.computeStatus(&integrator, relations.Items)
	if equality.Semantic.DeepEqual(integrator.Status, newStatus) {
		return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
	}

	phaseChanged := integrator.Status.Phase != newStatus.Phase
	integrator.Status = newStatus
	if err := r.Status().Update(ctx, &integrator); err != nil {
		return ctrl.Result{}, err
	}

	if phaseChanged {
		r.Log.Info("Integrator phase changed", "name", integrator.Name, "namespace", integrator.Namespace,
			"phase", newStatus.Phase, "message", newStatus.Message)
		if r.recordingEnabled(&integrator) {
			msg := string(newStatus.Phase)
			if newStatus.Message != "" {
				msg = fmt.Sprintf("%s: %s", newStatus.Phase, newStatus.Message)
			}
			r.Recorder.Event(&integrator, corev1.EventTypeNormal, "StatusChanged", msg)
		}
	}

	return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
}

// computeStatus derives the integrator phase and the per-backend slot
// table from the relations currently attached to it
func (r *DataIntegratorReconciler) computeStatus(integrator *v1.DataIntegrator, relations []v1.Relation) v1.DataIntegratorStatus {
	var status v1.DataIntegratorStatus

	previous := make(map[v1.BackendKind]v1.SlotStatus, len(integrator.Status.Slots))
	for _, slot := range integrator.Status.Slots {
		previous[slot.Backend] = slot
	}

	sort.Slice(relations, func(i, j int) bool {
		a, b := &relations[i], &relations[j]
		if !a.CreationTimestamp.Equal(&b.CreationTimestamp) {
			return a.CreationTimestamp.Before(&b.CreationTimestamp)
		}
		return a.Name < b.Name
	})

	slots := make(map[v1.BackendKind]v1.SlotStatus, len(relations))
	for i := range relations {
		rel := &relations[i]
		if !relay.Known(rel.Spec.Backend) {
			continue
		}
		if _, taken := slots[rel.Spec.Backend]; taken {
			// capacity is one per kind, the oldest relation holds the slot
			continue
		}

		slot := v1.SlotStatus{
			Backend:  rel.Spec.Backend,
			State:    relay.SlotFor(rel),
			Relation: rel.Name,
		}
		switch slot.State {
		case v1.SlotEstablished:
			slot.SecretName = credentialSecretName(integrator.Name, rel.Spec.Backend)
			cond := meta.FindStatusCondition(rel.Status.Conditions, v1.ConditionTypeCredentialsVerified)
			if cond != nil && cond.Status != metav1.ConditionUnknown {
				verified := cond.Status == metav1.ConditionTrue
				slot.Verified = &verified
			}
		case v1.SlotJoined:
			if _, err := relay.BuildRequest(&integrator.Spec, rel.Spec.Backend); err != nil {
				slot.Message = err.Error()
			}
		case v1.SlotBroken:
			slot.Relation = ""
		}

		if prev, ok := previous[rel.Spec.Backend]; ok && prev.State == slot.State && prev.Relation == slot.Relation {
			slot.LastTransitionTime = prev.LastTransitionTime
		} else {
			slot.LastTransitionTime = metav1.Now()
		}
		slots[rel.Spec.Backend] = slot
	}

	// A kind that had a relation and lost it stays visible as broken
	// until the next join of that kind
	for kind, prev := range previous {
		if _, ok := slots[kind]; ok || prev.State == v1.SlotAbsent {
			continue
		}
		slot := v1.SlotStatus{
			Backend:            kind,
			State:              v1.SlotBroken,
			LastTransitionTime: prev.LastTransitionTime,
		}
		if prev.State != v1.SlotBroken || prev.Relation != "" {
			slot.LastTransitionTime = metav1.Now()
		}
		slots[kind] = slot
	}

	var configMsg string
	for _, kind := range relay.Kinds() {
		slot, ok := slots[kind]
		if !ok {
			continue
		}
		status.Slots = append(status.Slots, slot)
		if configMsg == "" && slot.State == v1.SlotJoined && slot.Message != "" {
			configMsg = slot.Message
		}
	}

	// An established slot keeps the unit active even when another slot
	// cannot request yet. A configuration the relay rejects outright is
	// surfaced over everything else so the operator sees what to fix.
	status.Phase, status.Message = relay.Aggregate(status.Slots)
	cfgErr := relay.ValidateConfig(&integrator.Spec, activeKinds(relations))
	if cfgErr != nil {
		status.Phase = v1.PhaseBlocked
		status.Message = cfgErr.Error()
	} else if status.Phase != v1.PhaseActive && configMsg != "" {
		status.Phase = v1.PhaseBlocked
		status.Message = configMsg
	}

	conditions := make([]metav1.Condition, len(integrator.Status.Conditions))
	copy(conditions, integrator.Status.Conditions)

	cfgCond := metav1.Condition{
		Type:               v1.ConditionTypeConfigValid,
		Status:             metav1.ConditionTrue,
		Reason:             "Validated",
		Message:            "Configuration can be relayed",
		ObservedGeneration: integrator.Generation,
	}
	if cfgErr != nil {
		cfgCond.Status = metav1.ConditionFalse
		cfgCond.Reason = "ConfigInvalid"
		cfgCond.Message = cfgErr.Error()
	} else if configMsg != "" {
		cfgCond.Status = metav1.ConditionFalse
		cfgCond.Reason = "ConfigIncomplete"
		cfgCond.Message = configMsg
	}
	meta.SetStatusCondition(&conditions, cfgCond)

	var establishedKinds []string
	joined := 0
	for _, slot := range status.Slots {
		switch slot.State {
		case v1.SlotEstablished:
			establishedKinds = append(establishedKinds, string(slot.Backend))
			joined++
		case v1.SlotJoined:
			joined++
		}
	}
	readyCond := metav1.Condition{
		Type:               v1.ConditionTypeCredentialsReady,
		Status:             metav1.ConditionFalse,
		Reason:             "NoRelations",
		Message:            relay.MsgMissingRelation,
		ObservedGeneration: integrator.Generation,
	}
	if len(establishedKinds) > 0 {
		readyCond.Status = metav1.ConditionTrue
		readyCond.Reason = "CredentialsIssued"
		readyCond.Message = fmt.Sprintf("Credentials issued for %s", strings.Join(establishedKinds, ", "))
	} else if joined > 0 {
		readyCond.Reason = "WaitingForCredentials"
		readyCond.Message = relay.MsgWaitingForCredentials
	}
	meta.SetStatusCondition(&conditions, readyCond)

	status.Conditions = conditions
	return status
}

// shouldExclude will return true if the integrator is in an excluded namespace
func (r *DataIntegratorReconciler) shouldExclude(namespace string) bool {
	if len(r.ExcludeNamespaces) > 0 {
		return r.ExcludeNamespaces[namespace]
	}
	return false
}

// recordingEnabled check if we want the event recorded
func (r *DataIntegratorReconciler) recordingEnabled(integrator *v1.DataIntegrator) bool {
	recordAnn := integrator.GetAnnotations()[recordingEnabledAnnotation]
	if recordAnn != "" && recordAnn != "true" {
		return false
	}
	return r.RecordChanges
}

// integratorForRelation maps a relation event to its owning integrator
func (r *DataIntegratorReconciler) integratorForRelation(ctx context.Context, obj client.Object) []reconcile.Request {
	rel, ok := obj.(*v1.Relation)
	if !ok || rel.Spec.IntegratorRef == "" {
		return nil
	}
	return []reconcile.Request{
		{
			NamespacedName: types.NamespacedName{
				Namespace: rel.GetNamespace(),
				Name:      rel.Spec.IntegratorRef,
			},
		},
	}
}

// SetupWithManager sets up the controller with the Manager.
func (r *DataIntegratorReconciler) SetupWithManager(mgr ctrl.Manager) error {
	r.Recorder = mgr.GetEventRecorderFor("DataIntegrators")

	// Credential grants arrive as relation status updates with no
	// generation bump, so the relation watch must stay unfiltered.
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1.DataIntegrator{}, builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		Watches(&v1.Relation{}, handler.EnqueueRequestsFromMapFunc(r.integratorForRelation)).
		Complete(r)
}
