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

package relay

import (
	"fmt"

	v1 "dataplatform.io/integrator-operator/api/v1"
)

// Operator-facing messages. The wording is part of the product surface
// and is matched verbatim by the docs and the CLI.
const (
	MsgMissingRelation       = "Please relate the data-integrator with the desired product."
	MsgWaitingForCredentials = "Waiting for credentials."
	MsgNoResourceConfigured  = "The database name or topic name is not specified in the config."
	MsgNoRelationForQuery    = "The action can be run only after relation is created."
	MsgEntityType            = "The entity-type must be either USER or GROUP."
	MsgConsumerGroupPrefix   = "The consumer-group-prefix can only be used with the consumer role."
	MsgConflictingResources  = "Only one of the database, topic, index and prefix names can be set for the related products."
)

// ConfigError is an operator-facing validation failure; Error returns
// the status message verbatim.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// MissingFieldError reports that a relation's kind requires a
// configuration option that is empty.
type MissingFieldError struct {
	Kind  v1.BackendKind
	Field ResourceField
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("The %s is not specified in the config.", string(e.Field))
}

// ValidateConfig checks that the integrator configuration is
// self-consistent against the currently related backend kinds. A nil
// return means the configuration may be relayed. Validation never looks
// at credentials and never mutates anything.
func ValidateConfig(spec *v1.DataIntegratorSpec, active []v1.BackendKind) error {
	if spec.EntityType != "" && spec.EntityType != v1.EntityTypeUser && spec.EntityType != v1.EntityTypeGroup {
		return &ConfigError{Message: MsgEntityType}
	}

	if spec.ConsumerGroupPrefix != "" && !HasRole(spec.ExtraUserRoles, RoleConsumer) {
		return &ConfigError{Message: MsgConsumerGroupPrefix}
	}

	// Several resource names may be set as long as the active relations
	// do not disagree about which one applies.
	set := resourcesSet(spec)
	if len(set) > 1 {
		conflicting := map[ResourceField]bool{}
		for _, k := range active {
			f := kindSpecs[k].resource
			if f != FieldNone && set[f] {
				conflicting[f] = true
			}
		}
		if len(conflicting) > 1 {
			return &ConfigError{Message: MsgConflictingResources}
		}
	}

	return nil
}

// HasResource reports whether any of the resource name options is set.
func HasResource(spec *v1.DataIntegratorSpec) bool {
	return len(resourcesSet(spec)) > 0
}

func resourcesSet(spec *v1.DataIntegratorSpec) map[ResourceField]bool {
	set := map[ResourceField]bool{}
	if spec.DatabaseName != "" {
		set[FieldDatabaseName] = true
	}
	if spec.TopicName != "" {
		set[FieldTopicName] = true
	}
	if spec.IndexName != "" {
		set[FieldIndexName] = true
	}
	if spec.PrefixName != "" {
		set[FieldPrefixName] = true
	}
	return set
}
