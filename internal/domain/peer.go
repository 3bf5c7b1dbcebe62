package domain

import (
	"fmt"
	"strings"
)

type Identity string

// Intent is a transport-level tag two peers agree on before protocol messages
// flow between them.
type Intent int

// SessionIntent is advertised by peers able to play a chess session.
const SessionIntent Intent = 192

type IntentStatus string

const (
	IntentInProgress IntentStatus = "in_progress"
	IntentCompleted  IntentStatus = "completed"
)

func (s IntentStatus) Valid() bool {
	return s == IntentInProgress || s == IntentCompleted
}

type Contact struct {
	Identity    Identity
	Name        string
	IsAvailable bool
}

// ContactEntry is a locally known peer with the alias shown in place of the
// name the peer announces for itself.
type ContactEntry struct {
	Identity Identity
	Alias    string
}

func (e ContactEntry) Validate() error {
	if strings.TrimSpace(string(e.Identity)) == "" {
		return fmt.Errorf("identity is required")
	}
	if strings.TrimSpace(e.Alias) == "" {
		return fmt.Errorf("alias is required")
	}

	return nil
}

type Profile struct {
	Identity Identity `validate:"required,max=64"`
	Name     string   `validate:"required,max=64"`
	RelayURL string   `validate:"omitempty,url"`
}
