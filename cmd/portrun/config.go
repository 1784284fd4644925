package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a messaging run: a set of named execution contexts
// and the channels pumping messages between them.
type Scenario struct {
	Contexts []string  `yaml:"contexts"`
	Channels []Channel `yaml:"channels"`
}

// Channel is one port pair with a fixed message load.
type Channel struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Messages int    `yaml:"messages"`
	Payload  string `yaml:"payload"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultScenario builds the single-channel run used when no config file
// is given.
func DefaultScenario(messages int, payload string) *Scenario {
	return &Scenario{
		Contexts: []string{"sender", "receiver"},
		Channels: []Channel{
			{From: "sender", To: "receiver", Messages: messages, Payload: payload},
		},
	}
}

func (s *Scenario) validate() error {
	if len(s.Contexts) == 0 {
		return fmt.Errorf("config: no contexts defined")
	}
	known := make(map[string]bool, len(s.Contexts))
	for _, name := range s.Contexts {
		if name == "" {
			return fmt.Errorf("config: empty context name")
		}
		if known[name] {
			return fmt.Errorf("config: duplicate context %q", name)
		}
		known[name] = true
	}
	if len(s.Channels) == 0 {
		return fmt.Errorf("config: no channels defined")
	}
	for i, ch := range s.Channels {
		if !known[ch.From] {
			return fmt.Errorf("config: channel %d: unknown context %q", i, ch.From)
		}
		if !known[ch.To] {
			return fmt.Errorf("config: channel %d: unknown context %q", i, ch.To)
		}
		if ch.Messages <= 0 {
			return fmt.Errorf("config: channel %d: messages must be positive", i)
		}
	}
	return nil
}
