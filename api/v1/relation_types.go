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

// BackendKind names a supported data-platform product category.
// +kubebuilder:validation:Enum=mysql;postgresql;mongodb;mongos;cassandra;kafka;opensearch;zookeeper;kyuubi;etcd
type BackendKind string

const (
	BackendMySQL      BackendKind = "mysql"
	BackendPostgreSQL BackendKind = "postgresql"
	BackendMongoDB    BackendKind = "mongodb"
	BackendMongos     BackendKind = "mongos"
	BackendCassandra  BackendKind = "cassandra"
	BackendKafka      BackendKind = "kafka"
	BackendOpenSearch BackendKind = "opensearch"
	BackendZooKeeper  BackendKind = "zookeeper"
	BackendKyuubi     BackendKind = "kyuubi"
	BackendEtcd       BackendKind = "etcd"
)

// ConditionTypeCredentialsVerified tracks the optional connectivity
// check run against the backend with the issued credentials.
const ConditionTypeCredentialsVerified = "CredentialsVerified"

// AccessRequest is the outbound payload relayed to the backend provider.
// Only the fields meaningful to the relation's backend kind are ever
// populated; everything else stays empty even when the integrator
// configuration sets it.
type AccessRequest struct {
	// ResourceName is the database, topic, index or prefix name depending
	// on the backend kind
	ResourceName string `json:"resourceName,omitempty"`
	// EntityType is USER or GROUP on entity-creating backends
	EntityType string `json:"entityType,omitempty"`
	// ExtraRoles is the collapsed, order-preserving role set
	ExtraRoles []string `json:"extraRoles,omitempty"`
	// ConsumerGroupPrefix is relayed to messaging backends when the
	// consumer role is requested
	ConsumerGroupPrefix string `json:"consumerGroupPrefix,omitempty"`
	// MtlsCert is the dereferenced client certificate blob
	MtlsCert string `json:"mtlsCert,omitempty"`
}

// RelationSpec defines one channel between a DataIntegrator and a
// backend provider. Backend and IntegratorRef are set at creation and
// immutable; Request is owned by the integrator controller.
type RelationSpec struct {
	// Backend is the product category on the far side of this relation
	Backend BackendKind `json:"backend"`
	// IntegratorRef names the DataIntegrator in the same namespace this
	// relation belongs to
	IntegratorRef string `json:"integratorRef"`
	// Request is the last access request written by the controller
	Request *AccessRequest `json:"request,omitempty"`
}

// RelationStatus is written by the backend provider once access has
// been provisioned. The controller treats the credential bag as opaque
// beyond checking the username and secret equivalents are present.
type RelationStatus struct {
	// Credentials is the issued credential bag (username, password,
	// endpoints, uris, CA material); key names are backend-specific
	Credentials map[string]string `json:"credentials,omitempty"`
	// Version is the provider-reported product version
	Version    string             `json:"version,omitempty"`
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:printcolumn:name="Backend",type=string,JSONPath=`.spec.backend`
//+kubebuilder:printcolumn:name="Integrator",type=string,JSONPath=`.spec.integratorRef`
//+kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Relation is the Schema for the relations API
type Relation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RelationSpec   `json:"spec,omitempty"`
	Status RelationStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// RelationList contains a list of Relation
type RelationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Relation `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Relation{}, &RelationList{})
}
