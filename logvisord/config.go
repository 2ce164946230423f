// Copyright 2026 The Logvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/nutrilab/logvisor"
)

type Config struct {
	Listen      string            `yaml:"listen"`
	Directory   string            `yaml:"directory"`
	Name        string            `yaml:"name"`
	Enable      bool              `yaml:"enable"`
	Poll        logvisor.Duration `yaml:"poll"`
	StopTimeout logvisor.Duration `yaml:"stopTimeout"`
	History     int               `yaml:"history"`
	Logging     LoggingConfig     `yaml:"logging"`
	Auth        AuthConfig        `yaml:"auth"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	User string `yaml:"user"`
	Hash string `yaml:"hash"` // bcrypt
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientId"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func defaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8321",
		Directory:   ".",
		Name:        "logvisord",
		Poll:        logvisor.Duration(logvisor.DefaultPollInterval),
		StopTimeout: logvisor.Duration(time.Second),
		History:     logvisor.MaxLogRecords,
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		MQTT:        MQTTConfig{ClientID: "logvisord"},
	}
}

// loadConfig reads the YAML file at path over the defaults, then applies
// the environment.  An empty path skips the file.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, e := os.ReadFile(path)
		if e != nil {
			return nil, fmt.Errorf("reading config file: %w", e)
		}
		if e := yaml.Unmarshal(data, cfg); e != nil {
			return nil, fmt.Errorf("parsing config file: %w", e)
		}
	}
	if e := applyEnvOverrides(cfg); e != nil {
		return nil, e
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"LOGVISOR_LISTEN":         &cfg.Listen,
		"LOGVISOR_DIRECTORY":      &cfg.Directory,
		"LOGVISOR_NAME":           &cfg.Name,
		"LOGVISOR_LOG_LEVEL":      &cfg.Logging.Level,
		"LOGVISOR_LOG_FORMAT":     &cfg.Logging.Format,
		"LOGVISOR_AUTH_USER":      &cfg.Auth.User,
		"LOGVISOR_AUTH_HASH":      &cfg.Auth.Hash,
		"LOGVISOR_MQTT_BROKER":    &cfg.MQTT.Broker,
		"LOGVISOR_MQTT_TOPIC":     &cfg.MQTT.Topic,
		"LOGVISOR_MQTT_CLIENT_ID": &cfg.MQTT.ClientID,
		"LOGVISOR_MQTT_USERNAME":  &cfg.MQTT.Username,
		"LOGVISOR_MQTT_PASSWORD":  &cfg.MQTT.Password,
	}
	for k, p := range str {
		if v := os.Getenv(k); v != "" {
			*p = v
		}
	}
	if v := os.Getenv("LOGVISOR_ENABLE"); v != "" {
		b, e := strconv.ParseBool(v)
		if e != nil {
			return fmt.Errorf("LOGVISOR_ENABLE: %w", e)
		}
		cfg.Enable = b
	}
	if v := os.Getenv("LOGVISOR_HISTORY"); v != "" {
		n, e := strconv.Atoi(v)
		if e != nil {
			return fmt.Errorf("LOGVISOR_HISTORY: %w", e)
		}
		cfg.History = n
	}
	durs := map[string]*logvisor.Duration{
		"LOGVISOR_POLL":         &cfg.Poll,
		"LOGVISOR_STOP_TIMEOUT": &cfg.StopTimeout,
	}
	for k, p := range durs {
		if v := os.Getenv(k); v != "" {
			d, e := time.ParseDuration(v)
			if e != nil {
				return fmt.Errorf("%s: %w", k, e)
			}
			*p = logvisor.Duration(d)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Poll <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.StopTimeout < 0 {
		errs = append(errs, errors.New("stopTimeout must not be negative"))
	}
	if c.History < 0 {
		errs = append(errs, errors.New("history must not be negative"))
	}
	if c.Auth.User != "" {
		if _, e := bcrypt.Cost([]byte(c.Auth.Hash)); e != nil {
			errs = append(errs, fmt.Errorf("auth.hash: %w", e))
		}
	}
	return errors.Join(errs...)
}
