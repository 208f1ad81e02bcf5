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

package config

import "fmt"

// ConversationConfig configures the conversation collaborator.
type ConversationConfig struct {
	// MaxMessages caps the in-memory history; oldest messages are dropped.
	MaxMessages int `yaml:"max_messages,omitempty"`

	Store StoreConfig `yaml:"store,omitempty"`
}

// StoreConfig configures SQL persistence of conversation sessions.
type StoreConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Driver: sqlite3, postgres or mysql.
	Driver string `yaml:"driver,omitempty"`

	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn,omitempty"`
}

// SetDefaults applies default values.
func (c *ConversationConfig) SetDefaults() {
	if c.MaxMessages == 0 {
		c.MaxMessages = 1000
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite3"
	}
	if c.Store.DSN == "" && c.Store.Driver == "sqlite3" {
		c.Store.DSN = "meton.db"
	}
}

// Validate checks the conversation configuration.
func (c *ConversationConfig) Validate() error {
	if c.MaxMessages < 1 {
		return fmt.Errorf("max_messages must be at least 1")
	}
	switch c.Store.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported store driver %q (valid: sqlite3, postgres, mysql)", c.Store.Driver)
	}
	if c.Store.Enabled && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when the store is enabled")
	}
	return nil
}
