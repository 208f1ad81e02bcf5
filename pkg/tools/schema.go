// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// inputSchema renders T as a compact JSON schema for the tool prompt.
func inputSchema[T any]() string {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	return string(data)
}

// decodeInput parses a JSON object input into v.
func decodeInput(input string, v any) error {
	return json.Unmarshal([]byte(input), v)
}
