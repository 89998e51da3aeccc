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
	"testing"

	v1 "dataplatform.io/integrator-operator/api/v1"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		spec    v1.DataIntegratorSpec
		active  []v1.BackendKind
		wantMsg string
	}{
		{
			name: "empty config is valid",
			spec: v1.DataIntegratorSpec{},
		},
		{
			name: "single resource name",
			spec: v1.DataIntegratorSpec{DatabaseName: "test-database"},
		},
		{
			name:    "entity type outside enum",
			spec:    v1.DataIntegratorSpec{EntityType: "ROBOT"},
			wantMsg: MsgEntityType,
		},
		{
			name: "entity type USER accepted",
			spec: v1.DataIntegratorSpec{EntityType: v1.EntityTypeUser},
		},
		{
			name: "entity type GROUP accepted",
			spec: v1.DataIntegratorSpec{EntityType: v1.EntityTypeGroup},
		},
		{
			name:    "consumer group prefix without consumer role",
			spec:    v1.DataIntegratorSpec{ConsumerGroupPrefix: "grp-", ExtraUserRoles: "producer"},
			wantMsg: MsgConsumerGroupPrefix,
		},
		{
			name: "consumer group prefix with consumer role",
			spec: v1.DataIntegratorSpec{ConsumerGroupPrefix: "grp-", ExtraUserRoles: "consumer,producer"},
		},
		{
			name: "two resource names with no relations",
			spec: v1.DataIntegratorSpec{DatabaseName: "db", TopicName: "topic"},
		},
		{
			name:   "two resource names with relations of one family",
			spec:   v1.DataIntegratorSpec{DatabaseName: "db", TopicName: "topic"},
			active: []v1.BackendKind{v1.BackendMySQL, v1.BackendPostgreSQL},
		},
		{
			name:    "two resource names with conflicting relations",
			spec:    v1.DataIntegratorSpec{DatabaseName: "db", TopicName: "topic"},
			active:  []v1.BackendKind{v1.BackendMySQL, v1.BackendKafka},
			wantMsg: MsgConflictingResources,
		},
		{
			name:   "conflicting kinds but only one name set",
			spec:   v1.DataIntegratorSpec{DatabaseName: "db"},
			active: []v1.BackendKind{v1.BackendMySQL, v1.BackendKafka},
		},
		{
			name:   "resource-less kinds never conflict",
			spec:   v1.DataIntegratorSpec{DatabaseName: "db", TopicName: "topic"},
			active: []v1.BackendKind{v1.BackendMySQL, v1.BackendZooKeeper},
		},
	}

	for _, tc := range tests {
		err := ValidateConfig(&tc.spec, tc.active)
		if tc.wantMsg == "" {
			if err != nil {
				t.Errorf("%s: unexpected error: %v", tc.name, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s: expected error %q, got none", tc.name, tc.wantMsg)
			continue
		}
		if err.Error() != tc.wantMsg {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.wantMsg, err.Error())
		}
	}
}

func TestHasResource(t *testing.T) {
	if HasResource(&v1.DataIntegratorSpec{}) {
		t.Error("empty spec should have no resource")
	}
	if !HasResource(&v1.DataIntegratorSpec{PrefixName: "/app"}) {
		t.Error("prefix name should count as a resource")
	}
}
