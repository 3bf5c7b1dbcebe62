package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	ContactsPathKey  = "contacts.path"
	ConfigDir        = ".config/pchess"
	contactsFile     = "contacts.toml"
	contactsFileMode = 0o600
	contactsDirMode  = 0o700
	tempFilePattern  = ".contacts-*.toml.tmp"
)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// ContactBook stores the local address book in a TOML file. Writes replace the
// file atomically; books sharing a path share a lock.
type ContactBook struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.ContactBook = (*ContactBook)(nil)

func NewContactBook(cfg *viper.Viper) (*ContactBook, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(ContactsPathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, ConfigDir, contactsFile)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &ContactBook{path: path, mu: lockForPath(path)}, nil
}

func (b *ContactBook) Path() string {
	return b.path
}

func (b *ContactBook) List(ctx context.Context) ([]domain.ContactEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	file, err := b.readSchema()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ContactEntry, 0, len(file.Contacts))
	for _, contact := range file.Contacts {
		entries = append(entries, fromContactSchema(contact))
	}

	return entries, nil
}

// Save adds entry or replaces the alias of an existing identity.
func (b *ContactBook) Save(ctx context.Context, entry domain.ContactEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.Identity = domain.Identity(strings.TrimSpace(string(entry.Identity)))
	entry.Alias = strings.TrimSpace(entry.Alias)
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("save contact: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.readSchema()
	if err != nil {
		return err
	}

	encoded := toContactSchema(entry)
	index := slices.IndexFunc(file.Contacts, func(contact contactSchema) bool {
		return contact.Identity == encoded.Identity
	})
	if index >= 0 {
		file.Contacts[index] = encoded
	} else {
		file.Contacts = append(file.Contacts, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return b.writeSchema(file)
}

func (b *ContactBook) Remove(ctx context.Context, identity domain.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.readSchema()
	if err != nil {
		return err
	}

	before := len(file.Contacts)
	file.Contacts = slices.DeleteFunc(file.Contacts, func(contact contactSchema) bool {
		return contact.Identity == string(identity)
	})
	if len(file.Contacts) == before {
		return fmt.Errorf("%w: %s", domain.ErrContactNotFound, identity)
	}

	return b.writeSchema(file)
}

func (b *ContactBook) readSchema() (contactsFileSchema, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contactsFileSchema{}, nil
		}
		return contactsFileSchema{}, fmt.Errorf("read contacts file: %w", err)
	}

	var file contactsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return contactsFileSchema{}, fmt.Errorf("decode contacts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return contactsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (b *ContactBook) writeSchema(file contactsFileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(b.path), contactsDirMode); err != nil {
		return fmt.Errorf("create contacts directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode contacts file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(b.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp contacts file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp contacts file: %w", err)
	}

	if err := tempFile.Chmod(contactsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp contacts file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp contacts file: %w", err)
	}

	if err := os.Rename(tempName, b.path); err != nil {
		return fmt.Errorf("replace contacts file: %w", err)
	}
	cleanup = false

	return nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve contacts path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func toContactSchema(entry domain.ContactEntry) contactSchema {
	return contactSchema{Identity: string(entry.Identity), Alias: entry.Alias}
}

func fromContactSchema(contact contactSchema) domain.ContactEntry {
	return domain.ContactEntry{Identity: domain.Identity(contact.Identity), Alias: contact.Alias}
}
