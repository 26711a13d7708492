package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultFileName         = ".env"
	defaultOverrideFileName = ".local.env"
)

// EnvLoader reads layered .env files into the process environment.
// Precedence, lowest first: <folder>/.env, <folder>/.local.env, <folder>/.<APP_ENV>.env, the system environment.
type EnvLoader struct {
	logger logger
}

type logger interface {
	Warnf(format string, a ...any)
	Infof(format string, a ...any)
	Debugf(format string, a ...any)
	Errorf(format string, a ...any)
}

func NewEnvFile(configFolder string, logger logger) Config {
	conf := &EnvLoader{logger: logger}
	conf.read(configFolder)

	return conf
}

func (e *EnvLoader) read(folder string) {
	initialEnv := make(map[string]bool)

	for _, envVar := range os.Environ() {
		key, _, _ := strings.Cut(envVar, "=")
		initialEnv[key] = true
	}

	files := []string{defaultFileName, defaultOverrideFileName}

	// APP_ENV is captured before any file is applied so that a .env file cannot redirect itself.
	if appEnv := os.Getenv("APP_ENV"); appEnv != "" {
		files = append(files, fmt.Sprintf(".%s.env", appEnv))
	}

	envMap := make(map[string]string)

	for _, name := range files {
		e.mergeFile(filepath.Join(folder, name), envMap)
	}

	for key, value := range envMap {
		if !initialEnv[key] {
			os.Setenv(key, value)
		}
	}
}

func (e *EnvLoader) mergeFile(path string, envMap map[string]string) {
	content, err := godotenv.Read(path)

	switch {
	case err == nil:
		for k, v := range content {
			envMap[k] = v
		}

		e.logger.Infof("Loaded config from file: %v", path)
	case errors.Is(err, fs.ErrNotExist):
		e.logger.Debugf("Config file not found, skipping: %v", path)
	default:
		e.logger.Errorf("Failed to load config from file: %v, Err: %v", path, err)
	}
}

func (*EnvLoader) Get(key string) string {
	return os.Getenv(key)
}

func (*EnvLoader) GetOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultValue
}
