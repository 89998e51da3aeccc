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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v1 "dataplatform.io/integrator-operator/api/v1"
	"dataplatform.io/integrator-operator/relay"
)

// runGetCredentials prints the credential bag plus endpoint of every
// established relation slot as one JSON document, keyed by backend
// kind. The two failure messages are part of the product surface: one
// for an integrator with no resource name configured, one for an
// integrator with no relation at all.
func runGetCredentials(ctx context.Context, c client.Client, name, namespace string, out io.Writer) error {
	integrator, err := fetchIntegrator(ctx, c, name, namespace)
	if err != nil {
		return err
	}

	if !relay.HasResource(&integrator.Spec) {
		writeReply(out, map[string]interface{}{"ok": false})
		return errors.New(relay.MsgNoResourceConfigured)
	}

	var relations v1.RelationList
	if err := c.List(ctx, &relations, client.InNamespace(namespace)); err != nil {
		slog.Errorw("unable to list relations", "integrator", name, "namespace", namespace, "error", err)
		return err
	}

	reply := map[string]interface{}{"ok": true}
	related := false
	for i := range relations.Items {
		rel := &relations.Items[i]
		if rel.Spec.IntegratorRef != name {
			continue
		}
		related = true
		if relay.SlotFor(rel) != v1.SlotEstablished {
			continue
		}
		kind := string(rel.Spec.Backend)
		if _, taken := reply[kind]; taken {
			continue
		}
		reply[kind] = credentialEntry(rel)
	}
	if !related {
		writeReply(out, map[string]interface{}{"ok": false})
		return errors.New(relay.MsgNoRelationForQuery)
	}

	return writeReply(out, reply)
}

// runStatus prints the aggregate phase and the per-slot relation states
// of one integrator.
func runStatus(ctx context.Context, c client.Client, name, namespace string, out io.Writer) error {
	integrator, err := fetchIntegrator(ctx, c, name, namespace)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, renderStatus(integrator))
	return err
}

func fetchIntegrator(ctx context.Context, c client.Client, name, namespace string) (*v1.DataIntegrator, error) {
	var integrator v1.DataIntegrator
	err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &integrator)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("dataintegrator %s/%s not found", namespace, name)
		}
		slog.Errorw("unable to fetch the integrator", "integrator", name, "namespace", namespace, "error", err)
		return nil, err
	}
	return &integrator, nil
}

// credentialEntry flattens one established relation into the reply: the
// issued bag untouched, plus the endpoint address and provider version.
func credentialEntry(rel *v1.Relation) map[string]string {
	entry := make(map[string]string, len(rel.Status.Credentials)+2)
	for k, v := range rel.Status.Credentials {
		entry[k] = v
	}
	if endpoint := relay.Endpoint(rel.Status.Credentials); endpoint != "" {
		entry["endpoint"] = endpoint
	}
	if rel.Status.Version != "" {
		entry["version"] = rel.Status.Version
	}
	return entry
}

func writeReply(out io.Writer, reply map[string]interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reply)
}

func renderStatus(integrator *v1.DataIntegrator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase:   %s\n", integrator.Status.Phase)
	if integrator.Status.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", integrator.Status.Message)
	}
	if len(integrator.Status.Slots) > 0 {
		b.WriteString("Slots:\n")
	}
	for _, s := range integrator.Status.Slots {
		line := fmt.Sprintf("  %-12s %-12s", s.Backend, s.State)
		if s.Relation != "" {
			line += fmt.Sprintf(" relation=%s", s.Relation)
		}
		if s.SecretName != "" {
			line += fmt.Sprintf(" secret=%s", s.SecretName)
		}
		if s.Verified != nil {
			line += fmt.Sprintf(" verified=%t", *s.Verified)
		}
		if s.Message != "" {
			line += fmt.Sprintf(" (%s)", s.Message)
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}
