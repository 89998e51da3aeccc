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
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	v1 "dataplatform.io/integrator-operator/api/v1"
)

func relationFixture(name string, kind v1.BackendKind, integrator string) *v1.Relation {
	return &v1.Relation{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
		},
		Spec: v1.RelationSpec{
			Backend:       kind,
			IntegratorRef: integrator,
		},
	}
}

var _ = Describe("Relation Webhook", func() {
	var scheme *runtime.Scheme

	BeforeEach(func() {
		scheme = runtime.NewScheme()
		Expect(v1.AddToScheme(scheme)).To(Succeed())
	})

	admissionFor := func(existing ...client.Object) *relationAdmission {
		c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(existing...).Build()
		return &relationAdmission{client: c}
	}

	Context("When creating a relation", func() {
		It("Should allow the first relation of a kind", func() {
			ra := admissionFor()
			_, err := ra.ValidateCreate(context.TODO(), relationFixture("relation-7", v1.BackendMySQL, "test-app"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("Should deny a second live relation of the same kind", func() {
			ra := admissionFor(relationFixture("relation-7", v1.BackendMySQL, "test-app"))
			_, err := ra.ValidateCreate(context.TODO(), relationFixture("relation-9", v1.BackendMySQL, "test-app"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("already exists"))
		})

		It("Should allow the same kind for a different integrator", func() {
			ra := admissionFor(relationFixture("relation-7", v1.BackendMySQL, "test-app"))
			_, err := ra.ValidateCreate(context.TODO(), relationFixture("relation-9", v1.BackendMySQL, "other-app"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("Should allow replacing a relation that is being deleted", func() {
			now := metav1.Now()
			dying := relationFixture("relation-7", v1.BackendMySQL, "test-app")
			dying.DeletionTimestamp = &now
			dying.Finalizers = []string{"relation.dataplatform.io/finalizer"}
			ra := admissionFor(dying)
			_, err := ra.ValidateCreate(context.TODO(), relationFixture("relation-9", v1.BackendMySQL, "test-app"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("Should deny an unsupported backend kind", func() {
			ra := admissionFor()
			_, err := ra.ValidateCreate(context.TODO(), relationFixture("relation-7", "redis", "test-app"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("supported values"))
		})

		It("Should require the integrator reference", func() {
			ra := admissionFor()
			_, err := ra.ValidateCreate(context.TODO(), relationFixture("relation-7", v1.BackendMySQL, ""))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("integratorRef"))
		})
	})

	Context("When updating a relation", func() {
		It("Should deny changing the backend kind", func() {
			ra := admissionFor()
			oldRel := relationFixture("relation-7", v1.BackendMySQL, "test-app")
			newRel := relationFixture("relation-7", v1.BackendKafka, "test-app")
			_, err := ra.ValidateUpdate(context.TODO(), oldRel, newRel)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("backend kind cannot be changed"))
		})

		It("Should deny changing the integrator reference", func() {
			ra := admissionFor()
			oldRel := relationFixture("relation-7", v1.BackendMySQL, "test-app")
			newRel := relationFixture("relation-7", v1.BackendMySQL, "other-app")
			_, err := ra.ValidateUpdate(context.TODO(), oldRel, newRel)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("integrator reference cannot be changed"))
		})

		It("Should allow request rewrites", func() {
			ra := admissionFor()
			oldRel := relationFixture("relation-7", v1.BackendMySQL, "test-app")
			newRel := relationFixture("relation-7", v1.BackendMySQL, "test-app")
			newRel.Spec.Request = &v1.AccessRequest{ResourceName: "test-database"}
			_, err := ra.ValidateUpdate(context.TODO(), oldRel, newRel)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("When breaking a relation", func() {
		It("Should warn about credential revocation", func() {
			ra := admissionFor()
			warnings, err := ra.ValidateDelete(context.TODO(), relationFixture("relation-7", v1.BackendMySQL, "test-app"))
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(HaveLen(1))
		})
	})
})
