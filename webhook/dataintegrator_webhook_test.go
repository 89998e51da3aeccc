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

package webhook

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v1 "dataplatform.io/integrator-operator/api/v1"
	"dataplatform.io/integrator-operator/relay"
)

func integratorFixture(mutate func(*v1.DataIntegratorSpec)) *v1.DataIntegrator {
	integrator := &v1.DataIntegrator{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "test-app",
			Namespace: "default",
		},
	}
	if mutate != nil {
		mutate(&integrator.Spec)
	}
	return integrator
}

var _ = Describe("DataIntegrator Webhook", func() {

	var dia = dataIntegratorAdmission{}

	Context("When defaulting an integrator", func() {
		It("Should canonicalize the entity type", func() {
			integrator := integratorFixture(func(spec *v1.DataIntegratorSpec) {
				spec.EntityType = "group"
			})
			Expect(dia.Default(context.TODO(), integrator)).To(Succeed())
			Expect(integrator.Spec.EntityType).To(Equal(v1.EntityTypeGroup))
		})

		It("Should leave an unset entity type alone", func() {
			integrator := integratorFixture(nil)
			Expect(dia.Default(context.TODO(), integrator)).To(Succeed())
			Expect(integrator.Spec.EntityType).To(BeEmpty())
		})
	})

	Context("When validating an integrator", func() {
		It("Should deny a secret template that does not parse", func() {
			integrator := integratorFixture(func(spec *v1.DataIntegratorSpec) {
				spec.SecretTemplate = map[string]string{"pgpass": "{{ .username"}
			})
			_, err := dia.ValidateCreate(context.TODO(), integrator)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("secretTemplate"))
		})

		It("Should warn about an invalid entity type instead of denying", func() {
			integrator := integratorFixture(func(spec *v1.DataIntegratorSpec) {
				spec.EntityType = "ADMIN"
			})
			warnings, err := dia.ValidateCreate(context.TODO(), integrator)
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(ContainElement(relay.MsgEntityType))
		})

		It("Should warn about a consumer group prefix without the consumer role", func() {
			integrator := integratorFixture(func(spec *v1.DataIntegratorSpec) {
				spec.TopicName = "test-topic"
				spec.ConsumerGroupPrefix = "streams-app-"
			})
			warnings, err := dia.ValidateUpdate(context.TODO(), integratorFixture(nil), integrator)
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(ContainElement(relay.MsgConsumerGroupPrefix))
		})

		It("Should accept a complete configuration", func() {
			integrator := integratorFixture(func(spec *v1.DataIntegratorSpec) {
				spec.DatabaseName = "test-database"
				spec.ExtraUserRoles = "admin"
				spec.SecretTemplate = map[string]string{"dsn": "postgres://{{ .username }}:{{ .password }}@{{ .endpoints }}"}
			})
			warnings, err := dia.ValidateCreate(context.TODO(), integrator)
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(BeEmpty())
		})
	})
})
