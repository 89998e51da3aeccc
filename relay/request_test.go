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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	v1 "dataplatform.io/integrator-operator/api/v1"
)

func TestBuildRequestSelectsKindFields(t *testing.T) {
	spec := &v1.DataIntegratorSpec{
		DatabaseName:        "test-database",
		TopicName:           "test-topic",
		IndexName:           "test-index",
		PrefixName:          "/app",
		EntityType:          v1.EntityTypeUser,
		ExtraUserRoles:      "admin",
		ExtraGroupRoles:     "ops",
		ConsumerGroupPrefix: "grp-",
		MtlsCert:            "-----BEGIN CERTIFICATE-----",
	}

	tests := []struct {
		kind v1.BackendKind
		want *v1.AccessRequest
	}{
		{
			kind: v1.BackendMySQL,
			want: &v1.AccessRequest{ResourceName: "test-database", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendPostgreSQL,
			want: &v1.AccessRequest{ResourceName: "test-database", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendMongoDB,
			want: &v1.AccessRequest{ResourceName: "test-database", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendMongos,
			want: &v1.AccessRequest{ResourceName: "test-database", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendCassandra,
			want: &v1.AccessRequest{ResourceName: "test-database", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendKafka,
			want: &v1.AccessRequest{ResourceName: "test-topic", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendOpenSearch,
			want: &v1.AccessRequest{ResourceName: "test-index", ExtraRoles: []string{"admin"}},
		},
		{
			kind: v1.BackendZooKeeper,
			want: &v1.AccessRequest{},
		},
		{
			kind: v1.BackendKyuubi,
			want: &v1.AccessRequest{},
		},
		{
			kind: v1.BackendEtcd,
			want: &v1.AccessRequest{
				ResourceName: "/app",
				EntityType:   v1.EntityTypeUser,
				ExtraRoles:   []string{"admin"},
				MtlsCert:     "-----BEGIN CERTIFICATE-----",
			},
		},
	}

	for _, tc := range tests {
		got, err := BuildRequest(spec, tc.kind)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.kind, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s: request mismatch (-want +got):\n%s", tc.kind, diff)
		}
	}
}

func TestBuildRequestMissingResource(t *testing.T) {
	spec := &v1.DataIntegratorSpec{TopicName: "test-topic"}

	_, err := BuildRequest(spec, v1.BackendMySQL)
	if err == nil {
		t.Fatal("expected an error for mysql without a database name")
	}

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %T", err)
	}
	if missing.Field != FieldDatabaseName {
		t.Errorf("expected database name field, got %q", missing.Field)
	}
	if err.Error() != "The database name is not specified in the config." {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestBuildRequestConsumerGroupPrefix(t *testing.T) {
	spec := &v1.DataIntegratorSpec{
		TopicName:           "events",
		ExtraUserRoles:      "consumer,producer",
		ConsumerGroupPrefix: "analytics-",
	}

	got, err := BuildRequest(spec, v1.BackendKafka)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ConsumerGroupPrefix != "analytics-" {
		t.Errorf("expected consumer group prefix to be relayed, got %q", got.ConsumerGroupPrefix)
	}

	// Without the consumer role the prefix stays local.
	spec.ExtraUserRoles = "producer"
	got, err = BuildRequest(spec, v1.BackendKafka)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ConsumerGroupPrefix != "" {
		t.Errorf("expected prefix to be withheld without consumer role, got %q", got.ConsumerGroupPrefix)
	}
}

func TestBuildRequestEtcdGroupEntity(t *testing.T) {
	spec := &v1.DataIntegratorSpec{
		PrefixName:      "/config",
		EntityType:      v1.EntityTypeGroup,
		ExtraUserRoles:  "admin",
		ExtraGroupRoles: "reader,writer",
	}

	got, err := BuildRequest(spec, v1.BackendEtcd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"reader", "writer"}
	if diff := cmp.Diff(want, got.ExtraRoles); diff != "" {
		t.Errorf("group entity should take group roles (-want +got):\n%s", diff)
	}
}

func TestBuildRequestUnsupportedKind(t *testing.T) {
	if _, err := BuildRequest(&v1.DataIntegratorSpec{}, v1.BackendKind("redis")); err == nil {
		t.Error("expected an error for an unsupported kind")
	}
}

func TestRequestsMatch(t *testing.T) {
	base := &v1.AccessRequest{
		ResourceName: "db",
		ExtraRoles:   []string{"admin", "consumer"},
	}

	tests := []struct {
		name string
		a, b *v1.AccessRequest
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", base, nil, false},
		{"identical", base, base.DeepCopy(), true},
		{"different resource", base, &v1.AccessRequest{ResourceName: "other", ExtraRoles: []string{"admin", "consumer"}}, false},
		{"different roles", base, &v1.AccessRequest{ResourceName: "db", ExtraRoles: []string{"admin"}}, false},
		{"role order matters for equality", base, &v1.AccessRequest{ResourceName: "db", ExtraRoles: []string{"consumer", "admin"}}, false},
	}

	for _, tc := range tests {
		if got := RequestsMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
