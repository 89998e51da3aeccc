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
	v1 "dataplatform.io/integrator-operator/api/v1"
)

// SlotFor derives the lifecycle state of one relation slot from the
// observed Relation object. A relation being deleted is broken, one
// with a complete credential bag and a written request is established,
// anything else that exists has merely joined.
func SlotFor(rel *v1.Relation) v1.SlotState {
	if rel == nil {
		return v1.SlotAbsent
	}
	if !rel.ObjectMeta.DeletionTimestamp.IsZero() {
		return v1.SlotBroken
	}
	if rel.Spec.Request != nil && Complete(rel.Spec.Backend, rel.Status.Credentials) {
		return v1.SlotEstablished
	}
	return v1.SlotJoined
}

// Aggregate derives the unit phase and message from the slot states.
// An established slot wins over everything else, a joined slot without
// credentials reports waiting, and with no live relation at all the
// integrator asks for one.
func Aggregate(slots []v1.SlotStatus) (v1.Phase, string) {
	anyJoined := false
	for _, s := range slots {
		switch s.State {
		case v1.SlotEstablished:
			return v1.PhaseActive, ""
		case v1.SlotJoined:
			anyJoined = true
		}
	}
	if anyJoined {
		return v1.PhaseWaiting, MsgWaitingForCredentials
	}
	return v1.PhaseBlocked, MsgMissingRelation
}
