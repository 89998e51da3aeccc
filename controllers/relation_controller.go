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
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	sprig "github.com/Masterminds/sprig/v3"
	"github.com/go-logr/logr"
	"github.com/helmfile/vals"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	v1 "dataplatform.io/integrator-operator/api/v1"
	database "dataplatform.io/integrator-operator/db"
	dbtype "dataplatform.io/integrator-operator/db/types"
	"dataplatform.io/integrator-operator/metrics"
	"dataplatform.io/integrator-operator/relay"
	"dataplatform.io/integrator-operator/utils"
	"dataplatform.io/integrator-operator/vault"
)

const defaultProbeTimeout = 10 * time.Second

// RelationReconciler reconciles a Relation object
type RelationReconciler struct {
	client.Client
	Scheme               *runtime.Scheme
	Log                  logr.Logger
	Ctx                  context.Context
	APIReader            client.Reader
	ReconciliationPeriod time.Duration
	ProbeTimeout         time.Duration
	ExcludeNamespaces    map[string]bool
	RecordChanges        bool
	Recorder             record.EventRecorder

	errorCounts map[string]int
	errMu       sync.Mutex
}

//+kubebuilder:rbac:groups=dataplatform.io,resources=relations,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=dataplatform.io,resources=relations/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=dataplatform.io,resources=relations/finalizers,verbs=update
//+kubebuilder:rbac:groups=dataplatform.io,resources=dataintegrators,verbs=get;list;watch
//+kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups="",resources=events,verbs=create;patch

func (r *RelationReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var rel v1.Relation

	err := r.Get(ctx, req.NamespacedName, &rel)
	if err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	if r.shouldExclude(rel.Namespace) {
		r.Log.Info("Namespace requested is in the exclusion list, ignoring", "excluded_namespaces", r.ExcludeNamespaces)
		return ctrl.Result{}, nil
	}

	//! [finalizer]
	if rel.ObjectMeta.DeletionTimestamp.IsZero() {
		if !utils.ContainsString(rel.GetFinalizers(), relationFinalizer) {
			rel.SetFinalizers(append(rel.GetFinalizers(), relationFinalizer))
			if err := r.Update(context.Background(), &rel); err != nil {
				return ctrl.Result{}, err
			}
		}
	} else {
		// The relation is broken, release everything issued through it
		r.clearErrorCount(&rel)
		if utils.ContainsString(rel.GetFinalizers(), relationFinalizer) {
			if err := r.teardownSlot(ctx, &rel); err != nil {
				r.Log.Error(err, "Error releasing relayed credentials", "name", rel.Name, "namespace", rel.Namespace)
				return ctrl.Result{}, client.IgnoreNotFound(err)
			}

			rel.SetFinalizers(utils.RemoveString(rel.GetFinalizers(), relationFinalizer))
			if err := r.Update(context.Background(), &rel); err != nil {
				return ctrl.Result{}, err
			}
		}

		r.Log.Info("Relation broken", "name", rel.Name, "namespace", rel.Namespace, "backend", rel.Spec.Backend)
		return ctrl.Result{}, nil
	}
	//! [finalizer]

	var integrator v1.DataIntegrator
	err = r.Get(ctx, client.ObjectKey{Namespace: rel.Namespace, Name: rel.Spec.IntegratorRef}, &integrator)
	if err != nil {
		if errors.IsNotFound(err) {
			r.Log.Info("Integrator not found for relation", "name", rel.Name, "namespace", rel.Namespace, "integrator", rel.Spec.IntegratorRef)
			if r.recordingEnabled(&rel) {
				msg := fmt.Sprintf("DataIntegrator %s does not exist", rel.Spec.IntegratorRef)
				r.Recorder.Event(&rel, corev1.EventTypeWarning, "Orphaned", msg)
			}
			return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
		}
		return ctrl.Result{}, err
	}

	// Deleting the integrator tears down every relation hanging off it
	if metav1.GetControllerOf(&rel) == nil {
		if err := controllerutil.SetControllerReference(&integrator, &rel, r.Scheme); err != nil {
			return ctrl.Result{}, err
		}
		if err := r.Update(ctx, &rel); err != nil {
			return ctrl.Result{}, err
		}
	}

	var siblings v1.RelationList
	if err := r.List(ctx, &siblings, client.InNamespace(rel.Namespace),
		client.MatchingFields{integratorRefField: rel.Spec.IntegratorRef}); err != nil {
		return ctrl.Result{}, err
	}

	statusChanged := false

	if !holdsSlot(siblings.Items, &rel) {
		r.Log.Info("Another relation already holds the backend slot, holding off",
			"name", rel.Name, "namespace", rel.Namespace, "backend", rel.Spec.Backend)
		msg := fmt.Sprintf("A %s relation for %s already exists", rel.Spec.Backend, rel.Spec.IntegratorRef)
		if r.setCondition(&rel, v1.ConditionTypeRequestWritten, metav1.ConditionFalse, "SlotTaken", msg) {
			if err := r.Status().Update(ctx, &rel); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
	}

	if err := relay.ValidateConfig(&integrator.Spec, activeKinds(siblings.Items)); err != nil {
		r.Log.Info("Integrator configuration cannot be relayed", "name", rel.Name, "namespace", rel.Namespace, "reason", err.Error())
		if r.setCondition(&rel, v1.ConditionTypeRequestWritten, metav1.ConditionFalse, "ConfigInvalid", err.Error()) {
			if err := r.Status().Update(ctx, &rel); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
	}

	desired, err := relay.BuildRequest(&integrator.Spec, rel.Spec.Backend)
	if err != nil {
		// An incomplete configuration is an operator problem, not a relay
		// failure. Any previously written request stays on the wire.
		r.Log.Info("Cannot build access request", "name", rel.Name, "namespace", rel.Namespace, "reason", err.Error())
		if r.setCondition(&rel, v1.ConditionTypeRequestWritten, metav1.ConditionFalse, "ConfigIncomplete", err.Error()) {
			if err := r.Status().Update(ctx, &rel); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
	}

	if desired.MtlsCert != "" {
		cert, err := r.resolveSecretRef(desired.MtlsCert)
		if err != nil {
			r.Log.Error(err, "Failed to resolve client certificate reference", "name", rel.Name, "namespace", rel.Namespace)
			if r.recordingEnabled(&rel) {
				msg := fmt.Sprintf("Client certificate could not be resolved: %v", err)
				r.Recorder.Event(&rel, corev1.EventTypeWarning, "Failed", msg)
			}
			metrics.RelayFailures.Inc()
			metrics.RelayError.WithLabelValues(rel.Name, rel.Namespace).SetToCurrentTime()
			return r.errorBackoff(&rel)
		}
		desired.MtlsCert = cert
	}

	if !relay.RequestsMatch(rel.Spec.Request, desired) {
		rel.Spec.Request = desired
		if rel.ObjectMeta.Annotations == nil {
			rel.ObjectMeta.Annotations = make(map[string]string)
		}
		rel.ObjectMeta.Annotations[lastUpdatedAnnotation] = time.Now().UTC().Format(timeLayout)
		if err := r.Update(ctx, &rel); err != nil {
			r.Log.Error(err, "Failed to write access request", "name", rel.Name, "namespace", rel.Namespace)
			metrics.RelayFailures.Inc()
			metrics.RelayError.WithLabelValues(rel.Name, rel.Namespace).SetToCurrentTime()
			return r.errorBackoff(&rel)
		}
		metrics.RelationInfo.WithLabelValues(rel.Name, rel.Namespace, string(rel.Spec.Backend)).SetToCurrentTime()
		if r.recordingEnabled(&rel) {
			msg := fmt.Sprintf("Access request written for %s", rel.Spec.Backend)
			r.Recorder.Event(&rel, corev1.EventTypeNormal, "Updated", msg)
		}
		r.Log.Info("Access request written", "name", rel.Name, "namespace", rel.Namespace, "backend", rel.Spec.Backend)
	}
	if r.setCondition(&rel, v1.ConditionTypeRequestWritten, metav1.ConditionTrue, "RequestWritten", "Access request is up to date") {
		statusChanged = true
	}

	bag := rel.Status.Credentials
	if !relay.Complete(rel.Spec.Backend, bag) {
		if r.setCondition(&rel, v1.ConditionTypeCredentialsReady, metav1.ConditionFalse, "WaitingForCredentials", relay.MsgWaitingForCredentials) {
			statusChanged = true
		}
		if statusChanged {
			if err := r.Status().Update(ctx, &rel); err != nil {
				return ctrl.Result{}, err
			}
		}
		r.clearErrorCount(&rel)
		return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
	}

	if err := r.upsertSecret(&integrator, &rel, bag); err != nil {
		r.Log.Error(err, "Failed to mirror credentials", "name", rel.Name, "namespace", rel.Namespace)
		metrics.RelayFailures.Inc()
		metrics.RelayError.WithLabelValues(rel.Name, rel.Namespace).SetToCurrentTime()
		return r.errorBackoff(&rel)
	}

	if vault.Enabled() {
		if err := vault.WriteCredentials(rel.Namespace, integrator.Name, string(rel.Spec.Backend), bag); err != nil {
			r.Log.Error(err, "Failed to mirror credentials to the secrets backend", "name", rel.Name, "namespace", rel.Namespace)
			metrics.RelayFailures.Inc()
			metrics.RelayError.WithLabelValues(rel.Name, rel.Namespace).SetToCurrentTime()
			return r.errorBackoff(&rel)
		}
	}

	if r.setCondition(&rel, v1.ConditionTypeCredentialsReady, metav1.ConditionTrue, "CredentialsIssued", "Credentials issued by the provider") {
		statusChanged = true
	}

	if integrator.Spec.VerifyConnectivity {
		if r.verifyCredentials(ctx, &rel, bag) {
			statusChanged = true
		}
	}

	if statusChanged {
		if err := r.Status().Update(ctx, &rel); err != nil {
			return ctrl.Result{}, err
		}
	}

	r.clearErrorCount(&rel)
	return ctrl.Result{RequeueAfter: r.ReconciliationPeriod}, nil
}

// upsertSecret mirrors the issued credential bag into a plain secret so
// workloads can mount it without speaking to the relation objects
func (r *RelationReconciler) upsertSecret(integrator *v1.DataIntegrator, rel *v1.Relation, bag map[string]string) error {
	secretName := credentialSecretName(integrator.Name, rel.Spec.Backend)

	secret, err := r.getSecret(secretName, rel.GetNamespace())
	if err != nil {
		if client.IgnoreNotFound(err) != nil {
			return err
		}
		// secret not found, start from an empty one
		secret = &corev1.Secret{}
	}

	dataStr := make(map[string]string, len(bag))
	utils.MergeMap(dataStr, bag)
	data := utils.StringMapToBytes(dataStr)
	for k, v := range r.renderTemplate(integrator, rel, dataStr) {
		data[k] = v
	}

	hash := utils.HashOfStringMap(integrator.Spec.SecretTemplate)
	if secret.Name != "" && utils.ByteMapsMatch(secret.Data, data) &&
		secret.ObjectMeta.Annotations[templateHashAnnotation] == hash {
		/* Secret already up to date */
		return nil
	}

	secret.Name = secretName
	secret.Namespace = rel.Namespace
	secret.Data = data
	secret.Type = corev1.SecretTypeOpaque
	secret.ResourceVersion = ""

	if secret.ObjectMeta.Labels == nil {
		secret.ObjectMeta.Labels = make(map[string]string)
	}
	if secret.ObjectMeta.Annotations == nil {
		secret.ObjectMeta.Annotations = make(map[string]string)
	}
	secret.ObjectMeta.Labels[managedByLabel] = operatorName
	secret.ObjectMeta.Labels[backendLabel] = string(rel.Spec.Backend)
	secret.ObjectMeta.Labels[integratorLabel] = integrator.Name
	secret.ObjectMeta.Annotations[lastUpdatedAnnotation] = time.Now().UTC().Format(timeLayout)
	secret.ObjectMeta.Annotations[templateHashAnnotation] = hash
	delete(secret.ObjectMeta.Annotations, corev1.LastAppliedConfigAnnotation)

	if err = controllerutil.SetControllerReference(rel, secret, r.Scheme); err != nil {
		return err
	}

	err = r.Create(r.Ctx, secret)
	if errors.IsAlreadyExists(err) {
		err = r.Update(r.Ctx, secret)
	}
	if err != nil {
		if r.recordingEnabled(rel) {
			msg := fmt.Sprintf("Secret %s not saved %v", secret.Name, err)
			r.Recorder.Event(rel, corev1.EventTypeNormal, "Failed", msg)
		}
		return err
	}

	metrics.SecretInfo.WithLabelValues(secret.Name, secret.Namespace).SetToCurrentTime()
	if r.recordingEnabled(rel) {
		r.Recorder.Event(rel, corev1.EventTypeNormal, "Updated", "Credential secret created or updated")
	}
	r.Log.Info("Updated credential secret", "name", secretName, "namespace", rel.Namespace)

	return nil
}

func (r *RelationReconciler) renderTemplate(integrator *v1.DataIntegrator, rel *v1.Relation, dataStr map[string]string) map[string][]byte {
	data := make(map[string][]byte)

	/* Render any template given */
	for k, v := range integrator.Spec.SecretTemplate {
		b := bytes.NewBuffer(nil)
		t, err := template.New(k).Funcs(sprig.FuncMap()).Parse(v)
		if err != nil {
			r.Log.Error(err, "Cannot parse template", "key", k)
			if r.recordingEnabled(rel) {
				msg := fmt.Sprintf("Template could not be parsed: %v", err)
				r.Recorder.Event(rel, corev1.EventTypeNormal, "Failed", msg)
			}
			return data
		}
		if err := t.Execute(b, &dataStr); err != nil {
			r.Log.Error(err, "Cannot render template", "key", k)
			if r.recordingEnabled(rel) {
				msg := fmt.Sprintf("Template could not be rendered: %v", err)
				r.Recorder.Event(rel, corev1.EventTypeNormal, "Failed", msg)
			}
			return data
		}

		data[k] = b.Bytes()
	}
	return data
}

// teardownSlot drops everything derived from the relation: the mirrored
// secret, the copy held by the secrets backend and the slot metrics
func (r *RelationReconciler) teardownSlot(ctx context.Context, rel *v1.Relation) error {
	secretName := credentialSecretName(rel.Spec.IntegratorRef, rel.Spec.Backend)

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: rel.Namespace,
			Name:      secretName,
		},
	}
	if err := client.IgnoreNotFound(r.Delete(ctx, secret)); err != nil {
		metrics.SecretDeletionError.WithLabelValues(secretName, rel.Namespace).SetToCurrentTime()
		return err
	}

	if vault.Enabled() {
		if err := vault.DeleteCredentials(rel.Namespace, rel.Spec.IntegratorRef, string(rel.Spec.Backend)); err != nil {
			// keep going, a stale copy in the backend must not wedge deletion
			r.Log.Error(err, "Could not remove credentials from the secrets backend", "name", rel.Name, "namespace", rel.Namespace)
		}
	}

	metrics.RelationInfo.DeleteLabelValues(rel.Name, rel.Namespace, string(rel.Spec.Backend))
	metrics.SecretInfo.DeleteLabelValues(secretName, rel.Namespace)
	metrics.RelayError.DeleteLabelValues(rel.Name, rel.Namespace)
	metrics.ProbeTime.DeleteLabelValues(rel.Name, rel.Namespace)
	return nil
}

// verifyCredentials dials the backend with the issued credentials and
// records the outcome on the relation
func (r *RelationReconciler) verifyCredentials(ctx context.Context, rel *v1.Relation, bag map[string]string) bool {
	backend := string(rel.Spec.Backend)
	if !database.Supported(backend) {
		msg := fmt.Sprintf("No connectivity check is available for %s", backend)
		return r.setCondition(rel, v1.ConditionTypeCredentialsVerified, metav1.ConditionUnknown, "ProbeUnsupported", msg)
	}

	timeout := r.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	target := probeTarget(rel, bag)
	target.Timeout = timeout

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := database.VerifyCredentials(probeCtx, target)
	metrics.ProbeTime.WithLabelValues(rel.Name, rel.Namespace).Set(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.ProbeFailures.WithLabelValues(backend).Inc()
		r.Log.Error(err, "Connectivity check failed", "name", rel.Name, "namespace", rel.Namespace, "backend", backend)
		if r.recordingEnabled(rel) {
			r.Recorder.Event(rel, corev1.EventTypeWarning, "ProbeFailed", err.Error())
		}
		return r.setCondition(rel, v1.ConditionTypeCredentialsVerified, metav1.ConditionFalse, "ProbeFailed", err.Error())
	}

	msg := fmt.Sprintf("Issued credentials verified against %s", backend)
	return r.setCondition(rel, v1.ConditionTypeCredentialsVerified, metav1.ConditionTrue, "ProbeSucceeded", msg)
}

// probeTarget assembles the dial coordinates from the issued bag. A
// provider reported database name wins over the requested one.
func probeTarget(rel *v1.Relation, bag map[string]string) dbtype.ProbeTarget {
	target := dbtype.ProbeTarget{
		Backend:  string(rel.Spec.Backend),
		Username: bag[relay.KeyUsername],
		Password: bag[relay.KeyPassword],
		TLSCA:    bag[relay.KeyTLSCA],
	}
	if rel.Spec.Backend == v1.BackendMongoDB || rel.Spec.Backend == v1.BackendMongos {
		target.URI = bag[relay.KeyURIs]
	}
	for _, host := range strings.Split(bag[relay.KeyEndpoints], ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			target.Hosts = append(target.Hosts, host)
		}
	}
	if rel.Spec.Request != nil {
		target.Database = rel.Spec.Request.ResourceName
	}
	if db := bag["database"]; db != "" {
		target.Database = db
	}
	return target
}

// resolveSecretRef dereferences ref+ values so the literal certificate
// travels over the relation. Kubernetes refs are read directly, anything
// else goes through the vals secret providers.
func (r *RelationReconciler) resolveSecretRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, "ref+") {
		return ref, nil
	}
	if strings.HasPrefix(ref, k8sSecretPrefix) {
		return r.getKeyFromK8sSecret(ref)
	}

	rendered, err := vals.Eval(map[string]interface{}{"mtls-cert": ref}, vals.Options{})
	if err != nil {
		return "", err
	}
	v, ok := rendered["mtls-cert"].(string)
	if !ok {
		return "", fmt.Errorf("secret reference %s did not resolve to a string", ref)
	}
	return v, nil
}

func (r *RelationReconciler) getKeyFromK8sSecret(secretRef string) (string, error) {
	re := regexp.MustCompile(`ref\+k8s://(?P<namespace>\S+)/(?P<secretName>\S+)#(?P<key>\S+)`)
	matchMap := findAllGroups(re, secretRef)

	if !k8sSecretRefComplete(matchMap) {
		return "", fmt.Errorf("the ref+k8s secret '%s' did not match the regular expression for ref+k8s://namespace/secret-name#key", secretRef)
	}
	secret, err := r.getSecret(matchMap["secretName"], matchMap["namespace"])
	if err != nil {
		return "", err
	}

	return string(secret.Data[matchMap["key"]]), nil
}

func (r *RelationReconciler) setCondition(rel *v1.Relation, conditionType string, status metav1.ConditionStatus, reason, message string) bool {
	return meta.SetStatusCondition(&rel.Status.Conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: rel.Generation,
	})
}

func (r *RelationReconciler) getSecret(secretName string, namespace string) (*corev1.Secret, error) {
	var secret corev1.Secret

	err := r.Get(r.Ctx, client.ObjectKey{
		Namespace: namespace,
		Name:      secretName,
	}, &secret)
	if err != nil {
		return nil, err
	}

	return &secret, nil
}

// shouldExclude will return true if the relation is in an excluded namespace
func (r *RelationReconciler) shouldExclude(namespace string) bool {
	if len(r.ExcludeNamespaces) > 0 {
		return r.ExcludeNamespaces[namespace]
	}
	return false
}

// recordingEnabled check if we want the event recorded
func (r *RelationReconciler) recordingEnabled(rel *v1.Relation) bool {
	recordAnn := rel.GetAnnotations()[recordingEnabledAnnotation]
	if recordAnn != "" && recordAnn != "true" {
		return false
	}
	return r.RecordChanges
}

// activeKinds lists the backend kinds with a live relation attached
func activeKinds(items []v1.Relation) []v1.BackendKind {
	kinds := make([]v1.BackendKind, 0, len(items))
	for i := range items {
		if !items[i].ObjectMeta.DeletionTimestamp.IsZero() {
			continue
		}
		kinds = append(kinds, items[i].Spec.Backend)
	}
	return kinds
}

// holdsSlot reports whether rel is the relation entitled to its backend
// kind slot. The oldest live relation of a kind wins, later ones wait
// for it to go away.
func holdsSlot(items []v1.Relation, rel *v1.Relation) bool {
	for i := range items {
		other := &items[i]
		if other.Name == rel.Name || other.Spec.Backend != rel.Spec.Backend {
			continue
		}
		if !other.ObjectMeta.DeletionTimestamp.IsZero() {
			continue
		}
		if other.CreationTimestamp.Before(&rel.CreationTimestamp) {
			return false
		}
		if other.CreationTimestamp.Equal(&rel.CreationTimestamp) && other.Name < rel.Name {
			return false
		}
	}
	return true
}

// SetupWithManager sets up the controller with the Manager.
func (r *RelationReconciler) SetupWithManager(mgr ctrl.Manager) error {
	r.Recorder = mgr.GetEventRecorderFor("Relations")

	// Index relations by integrator so both controllers can list the
	// relations attached to one integrator without a full scan
	if err := mgr.GetFieldIndexer().IndexField(context.Background(), &v1.Relation{}, integratorRefField,
		func(rawObj client.Object) []string {
			rel := rawObj.(*v1.Relation)
			if rel.Spec.IntegratorRef == "" {
				return nil
			}
			return []string{rel.Spec.IntegratorRef}
		}); err != nil {
		return err
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&v1.Relation{}).
		Owns(&corev1.Secret{}).
		Complete(r)
}

// errorBackoff increments the error count for the relation and uses it to calculate the backoff time
func (r *RelationReconciler) errorBackoff(rel *v1.Relation) (ctrl.Result, error) {
	const maxBackoff = 120 * time.Second
	const minBackoff = 3 * time.Second
	const backoffFactor = 1.5
	// fraction of the backoff time to use as random jitter. This is applied + or - so a jitter of 0.1 allows the backoff time to be changed +/- 10%
	const jitterFraction = 0.1

	errCount := r.incErrorCount(rel)

	// Calculate backoff time as minBackoff + (backoffFactor ^ errorCount)
	backoffTime := minBackoff + (time.Second * time.Duration(math.Round(math.Pow(backoffFactor, float64(errCount)))))
	if backoffTime < minBackoff {
		backoffTime = minBackoff
	} else if backoffTime > maxBackoff {
		backoffTime = maxBackoff
	}

	// Add jitter to backoff time (allow going past the maxBackoff with this as it will only be +/-10%)
	jitter := math.Round((rand.Float64() - 0.5) * float64(backoffTime) * (jitterFraction * 2))
	backoffTime += time.Duration(jitter)

	r.Log.Info(fmt.Sprintf("errorBackoff: %s  (jitter=%s)", backoffTime.String(), time.Duration(jitter).String()))
	return ctrl.Result{RequeueAfter: backoffTime}, nil
}

func (r *RelationReconciler) incErrorCount(rel *v1.Relation) int {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	errKey := fmt.Sprintf("%s/%s", rel.Namespace, rel.Name)
	if r.errorCounts == nil {
		r.errorCounts = make(map[string]int)
	}
	r.errorCounts[errKey]++
	return r.errorCounts[errKey]
}

func (r *RelationReconciler) clearErrorCount(rel *v1.Relation) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	errKey := fmt.Sprintf("%s/%s", rel.Namespace, rel.Name)
	if len(r.errorCounts) < 1 {
		return
	}
	delete(r.errorCounts, errKey)
}

// findAllGroups returns a map with each match group. The map key corresponds to the match group name.
// A nil return value indicates no matches.
func findAllGroups(re *regexp.Regexp, s string) map[string]string {
	matches := re.FindStringSubmatch(s)
	subnames := re.SubexpNames()
	if matches == nil || len(matches) != len(subnames) {
		return nil
	}

	matchMap := map[string]string{}
	for i := 1; i < len(matches); i++ {
		matchMap[subnames[i]] = matches[i]
	}
	return matchMap
}

func k8sSecretRefComplete(m map[string]string) bool {
	for _, k := range []string{"namespace", "secretName", "key"} {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
