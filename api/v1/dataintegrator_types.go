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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EDIT THIS FILE!  THIS IS SCAFFOLDING FOR YOU TO OWN!
// NOTE: json tags are required.  Any new fields you add must have json tags for the fields to be serialized.

// Entity types accepted in EntityType. Validation happens in the
// reconciler so that a bad value surfaces as Blocked status rather
// than an admission rejection.
const (
	EntityTypeUser  = "USER"
	EntityTypeGroup = "GROUP"
)

// Condition types reported on DataIntegrator and Relation objects
const (
	ConditionTypeConfigValid      = "ConfigValid"
	ConditionTypeRequestWritten   = "RequestWritten"
	ConditionTypeCredentialsReady = "CredentialsReady"
)

// DataIntegratorSpec is the operator-supplied desired state: which
// resource to request access to and under which identity. All fields are
// optional; which ones are consumed depends on the backend kind of each
// related product.
type DataIntegratorSpec struct {
	// DatabaseName is the database to request on relational and document
	// stores (mysql, postgresql, mongodb, mongos, cassandra)
	DatabaseName string `json:"databaseName,omitempty"`
	// TopicName is the topic to request on messaging backends (kafka)
	TopicName string `json:"topicName,omitempty"`
	// IndexName is the index to request on search backends (opensearch)
	IndexName string `json:"indexName,omitempty"`
	// PrefixName is the key prefix to request on key-value backends (etcd)
	PrefixName string `json:"prefixName,omitempty"`
	// EntityType selects USER or GROUP entity creation on backends that
	// distinguish them (etcd)
	EntityType string `json:"entityType,omitempty"`
	// ExtraUserRoles are comma-separated role tokens granted to the
	// requested user, e.g. "admin" or "consumer,producer"
	ExtraUserRoles string `json:"extraUserRoles,omitempty"`
	// ExtraGroupRoles are comma-separated role tokens granted to the
	// requested group
	ExtraGroupRoles string `json:"extraGroupRoles,omitempty"`
	// ConsumerGroupPrefix is only honoured when the consumer role is
	// requested
	ConsumerGroupPrefix string `json:"consumerGroupPrefix,omitempty"`
	// MtlsCert is a client certificate for certificate-authenticated
	// backends. Either a literal PEM blob or a ref+backend://path
	// reference resolved before relay
	MtlsCert string `json:"mtlsCert,omitempty"`
	// SecretTemplate adds rendered keys to the mirrored credential
	// secrets; values are templates evaluated against the credential bag
	SecretTemplate map[string]string `json:"secretTemplate,omitempty"`
	// VerifyConnectivity probes each backend with the issued credentials
	// once they arrive
	VerifyConnectivity bool `json:"verifyConnectivity,omitempty"`
}

// Phase is the aggregate unit status derived from the slot states
type Phase string

const (
	PhaseBlocked Phase = "Blocked"
	PhaseWaiting Phase = "Waiting"
	PhaseActive  Phase = "Active"
)

// SlotState tracks one relation slot through its lifecycle
type SlotState string

const (
	SlotAbsent      SlotState = "Absent"
	SlotJoined      SlotState = "Joined"
	SlotEstablished SlotState = "Established"
	SlotBroken      SlotState = "Broken"
)

// SlotStatus records the observed state of the relation slot for one
// backend kind. A slot whose Relation went away keeps a Broken record,
// with all credential references cleared, until a new relation of the
// same kind replaces it.
type SlotStatus struct {
	Backend  BackendKind `json:"backend"`
	State    SlotState   `json:"state"`
	Relation string      `json:"relation,omitempty"`
	// SecretName is the mirrored credential secret, set only while the
	// slot is Established
	SecretName string `json:"secretName,omitempty"`
	Message    string `json:"message,omitempty"`
	// Verified reports the connectivity probe outcome when
	// spec.verifyConnectivity is enabled
	Verified           *bool       `json:"verified,omitempty"`
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`
}

// DataIntegratorStatus defines the observed state of DataIntegrator
type DataIntegratorStatus struct {
	Phase      Phase              `json:"phase,omitempty"`
	Message    string             `json:"message,omitempty"`
	Slots      []SlotStatus       `json:"slots,omitempty"`
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
//+kubebuilder:printcolumn:name="Message",type=string,JSONPath=`.status.message`,priority=1
//+kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DataIntegrator is the Schema for the dataintegrators API
type DataIntegrator struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DataIntegratorSpec   `json:"spec,omitempty"`
	Status DataIntegratorStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// DataIntegratorList contains a list of DataIntegrator
type DataIntegratorList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DataIntegrator `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DataIntegrator{}, &DataIntegratorList{})
}
