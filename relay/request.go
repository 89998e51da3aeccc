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

// BuildRequest derives the access request relayed to a backend of the
// given kind. Only the fields meaningful to the kind are populated; a
// required resource name that is empty yields a MissingFieldError.
// Kinds without a resource field (zookeeper, kyuubi) produce an empty
// request, the join itself being the whole ask.
func BuildRequest(spec *v1.DataIntegratorSpec, kind v1.BackendKind) (*v1.AccessRequest, error) {
	ks, ok := kindSpecs[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported backend kind %q", kind)
	}

	req := &v1.AccessRequest{}

	switch ks.resource {
	case FieldDatabaseName:
		req.ResourceName = spec.DatabaseName
	case FieldTopicName:
		req.ResourceName = spec.TopicName
	case FieldIndexName:
		req.ResourceName = spec.IndexName
	case FieldPrefixName:
		req.ResourceName = spec.PrefixName
	}
	if ks.resource != FieldNone && req.ResourceName == "" {
		return nil, &MissingFieldError{Kind: kind, Field: ks.resource}
	}

	if ks.userRoles {
		req.ExtraRoles = ParseRoles(spec.ExtraUserRoles)
	}

	if ks.entities {
		req.EntityType = spec.EntityType
		if spec.EntityType == v1.EntityTypeGroup {
			req.ExtraRoles = ParseRoles(spec.ExtraGroupRoles)
		} else {
			req.ExtraRoles = ParseRoles(spec.ExtraUserRoles)
		}
	}

	if ks.consumerPrefix && HasRole(spec.ExtraUserRoles, RoleConsumer) {
		req.ConsumerGroupPrefix = spec.ConsumerGroupPrefix
	}

	if ks.mtls {
		req.MtlsCert = spec.MtlsCert
	}

	return req, nil
}

// RequestsMatch reports whether two access requests ask for the same
// thing, so reconcilers can skip redundant relation writes.
func RequestsMatch(a, b *v1.AccessRequest) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ResourceName != b.ResourceName ||
		a.EntityType != b.EntityType ||
		a.ConsumerGroupPrefix != b.ConsumerGroupPrefix ||
		a.MtlsCert != b.MtlsCert {
		return false
	}
	if len(a.ExtraRoles) != len(b.ExtraRoles) {
		return false
	}
	for i := range a.ExtraRoles {
		if a.ExtraRoles[i] != b.ExtraRoles[i] {
			return false
		}
	}
	return true
}
