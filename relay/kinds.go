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

// Package relay holds the pure credential-relay rules: which
// configuration fields each backend kind consumes, how an access
// request is derived from the integrator configuration, when an issued
// credential bag counts as complete and how the aggregate unit status
// is computed. Nothing in here talks to the API server.
package relay

import (
	v1 "dataplatform.io/integrator-operator/api/v1"
)

// ResourceField names the configuration option that carries the
// resource name for a backend kind, in the form used in operator-facing
// messages.
type ResourceField string

const (
	FieldNone         ResourceField = ""
	FieldDatabaseName ResourceField = "database name"
	FieldTopicName    ResourceField = "topic name"
	FieldIndexName    ResourceField = "index name"
	FieldPrefixName   ResourceField = "prefix name"
)

// kindSpec describes the configuration surface of one backend kind:
// which resource field it requires and which optional fields it
// consumes. secretKeys are the bag keys that must be non-empty before
// the issued credential counts as usable.
type kindSpec struct {
	resource       ResourceField
	userRoles      bool
	consumerPrefix bool
	entities       bool
	mtls           bool
	secretKeys     []string
}

var kindSpecs = map[v1.BackendKind]kindSpec{
	v1.BackendMySQL: {
		resource:   FieldDatabaseName,
		userRoles:  true,
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendPostgreSQL: {
		resource:   FieldDatabaseName,
		userRoles:  true,
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendMongoDB: {
		resource:   FieldDatabaseName,
		userRoles:  true,
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendMongos: {
		resource:   FieldDatabaseName,
		userRoles:  true,
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendCassandra: {
		resource:   FieldDatabaseName,
		userRoles:  true,
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendKafka: {
		resource:       FieldTopicName,
		userRoles:      true,
		consumerPrefix: true,
		secretKeys:     []string{KeyUsername, KeyPassword},
	},
	v1.BackendOpenSearch: {
		resource:   FieldIndexName,
		userRoles:  true,
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendZooKeeper: {
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendKyuubi: {
		secretKeys: []string{KeyUsername, KeyPassword},
	},
	v1.BackendEtcd: {
		resource:   FieldPrefixName,
		entities:   true,
		mtls:       true,
		secretKeys: []string{KeyUsername, KeyTLSCA},
	},
}

// kindOrder keeps listings stable for status and query output.
var kindOrder = []v1.BackendKind{
	v1.BackendMySQL,
	v1.BackendPostgreSQL,
	v1.BackendMongoDB,
	v1.BackendMongos,
	v1.BackendCassandra,
	v1.BackendKafka,
	v1.BackendOpenSearch,
	v1.BackendZooKeeper,
	v1.BackendKyuubi,
	v1.BackendEtcd,
}

// Kinds returns all supported backend kinds in a stable order.
func Kinds() []v1.BackendKind {
	out := make([]v1.BackendKind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// Known reports whether k is a supported backend kind.
func Known(k v1.BackendKind) bool {
	_, ok := kindSpecs[k]
	return ok
}

// Resource returns the configuration option the kind takes its resource
// name from, or FieldNone when the join itself is the whole request.
func Resource(k v1.BackendKind) ResourceField {
	return kindSpecs[k].resource
}
