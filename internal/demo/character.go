// Package demo provides reference record types exercising both wire
// framings spec §8's concrete scenarios name: a persistent "Character"
// (S4) and a transient "ChatMessage" (S5). They back the package's
// tests and cmd/syncd's example wiring; application record types in a
// real deployment would be generated from the host's own object
// definitions (spec §1's external Object Codec contract).
package demo

import "github.com/google/uuid"

// Character is a persistent record: the wire only ever carries its
// UUID, and peers reload the full value from their local Store.
type Character struct {
	UUID  uuid.UUID `json:"uuid"`
	Name  string    `json:"name"`
	Level int       `json:"level"`
	Zone  string    `json:"zone"`
}

// SyncUUID implements meta.Record.
func (c *Character) SyncUUID() uuid.UUID {
	return c.UUID
}
