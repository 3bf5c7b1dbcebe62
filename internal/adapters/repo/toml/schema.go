package toml

import "fmt"

const currentSchemaVersion = 1

type contactsFileSchema struct {
	Version  int             `toml:"version"`
	Contacts []contactSchema `toml:"contacts"`
}

func (s *contactsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s contactsFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported contacts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type contactSchema struct {
	Identity string `toml:"identity"`
	Alias    string `toml:"alias"`
}
