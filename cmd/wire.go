package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	chessrules "github.com/bnema/peer-chess/internal/adapters/rules/chess"
	tomlrepo "github.com/bnema/peer-chess/internal/adapters/repo/toml"
	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/go-playground/validator/v10"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "PCHESS"

	profileIdentityKey = "profile.identity"
	profileNameKey     = "profile.name"
	relayURLKey        = "relay.url"
	relayListenKey     = "relay.listen"
	logLevelKey        = "log.level"

	defaultRelayURL    = "ws://127.0.0.1:7470"
	defaultRelayListen = "127.0.0.1:7470"
	defaultLogLevel    = "INFO"
)

var ErrProfileMissing = errors.New("no player profile, run `pchess init` first")

type app struct {
	config     *viper.Viper
	configPath string
	contacts   ports.ContactBook
	boards     ports.BoardFactory
	validate   *validator.Validate
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, tomlrepo.ConfigDir)
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}

	contacts, err := tomlrepo.NewContactBook(config)
	if err != nil {
		return nil, fmt.Errorf("wire contact book: %w", err)
	}

	return &app{
		config:     config,
		configPath: filepath.Join(configDir, configName+"."+configType),
		contacts:   contacts,
		boards:     chessrules.NewEngine(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

func loadConfig(dir string) (*viper.Viper, error) {
	config := viper.New()
	config.SetConfigName(configName)
	config.SetConfigType(configType)
	config.AddConfigPath(dir)

	config.SetEnvPrefix(envPrefix)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	config.SetDefault(relayURLKey, defaultRelayURL)
	config.SetDefault(relayListenKey, defaultRelayListen)
	config.SetDefault(logLevelKey, defaultLogLevel)

	if err := config.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return config, nil
}

func (a *app) profile() (domain.Profile, error) {
	profile := domain.Profile{
		Identity: domain.Identity(a.config.GetString(profileIdentityKey)),
		Name:     a.config.GetString(profileNameKey),
		RelayURL: a.config.GetString(relayURLKey),
	}
	if profile.Identity == "" {
		return domain.Profile{}, ErrProfileMissing
	}
	if err := a.validate.Struct(profile); err != nil {
		return domain.Profile{}, fmt.Errorf("invalid profile: %w", err)
	}

	return profile, nil
}

func (a *app) writeConfig() error {
	if err := os.MkdirAll(filepath.Dir(a.configPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := a.config.WriteConfigAs(a.configPath); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (a *app) logger() *slog.Logger {
	return logs.GetLoggerFromString(a.config.GetString(logLevelKey))
}
