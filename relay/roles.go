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
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Role tokens with meaning to the relay rules. Everything else is
// passed through to the provider untouched.
const (
	RoleConsumer = "consumer"
	RoleProducer = "producer"
	RoleAdmin    = "admin"
)

// ParseRoles turns a comma-separated role list into an ordered set:
// tokens are trimmed and lower-cased, duplicates collapse with the
// first occurrence winning. Returns nil for an empty list.
func ParseRoles(raw string) []string {
	set := orderedmap.New[string, struct{}]()
	for _, tok := range strings.Split(raw, ",") {
		role := strings.ToLower(strings.TrimSpace(tok))
		if role == "" {
			continue
		}
		set.Set(role, struct{}{})
	}
	if set.Len() == 0 {
		return nil
	}
	roles := make([]string, 0, set.Len())
	for pair := set.Oldest(); pair != nil; pair = pair.Next() {
		roles = append(roles, pair.Key)
	}
	return roles
}

// HasRole reports whether role appears in the comma-separated list.
func HasRole(raw, role string) bool {
	for _, r := range ParseRoles(raw) {
		if r == role {
			return true
		}
	}
	return false
}
