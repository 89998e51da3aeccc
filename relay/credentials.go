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

// Bag keys the relay rules care about. Providers are free to add more;
// everything is passed through untouched.
const (
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeyEndpoints = "endpoints"
	KeyURIs      = "uris"
	KeyTLSCA     = "tls-ca"
)

// Complete reports whether the issued credential bag carries the
// username and secret equivalents the kind requires. An incomplete bag
// keeps the slot in the joined state until the provider finishes
// writing.
func Complete(kind v1.BackendKind, bag map[string]string) bool {
	if len(bag) == 0 {
		return false
	}
	ks, ok := kindSpecs[kind]
	if !ok {
		return false
	}
	for _, key := range ks.secretKeys {
		if bag[key] == "" {
			return false
		}
	}
	return true
}

// Endpoint extracts the relation endpoint address from the bag,
// preferring the endpoints key over connection URIs.
func Endpoint(bag map[string]string) string {
	if v := bag[KeyEndpoints]; v != "" {
		return v
	}
	return bag[KeyURIs]
}
