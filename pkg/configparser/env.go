package configparser

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads a .env file without overriding variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not load env file: %w", err)
	}
	return nil
}

// LoadAndParseYaml loads the YAML file into the environment and fills cfg from it.
// A missing file leaves only the environment and the defaults.
func LoadAndParseYaml(path string, cfg any) error {
	if err := LoadYamlFile(path); err != nil && !errors.Is(err, ErrNoFilePath) && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return ParseEnv(cfg)
}
