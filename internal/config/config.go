package config

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"net/mail"
	"net/url"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/Travis-Britz/cfddns"
)

// Config is the YAML configuration file.
type Config struct {
	// Token is the Cloudflare API token. ${ENV_VAR} references are expanded.
	Token string `yaml:"token"`
	// TokenFile is read when Token is empty. It must not be readable by other users.
	TokenFile string `yaml:"token_file"`
	// Interval between passes in seconds.
	Interval int `yaml:"interval"`
	// Endpoint is one public IP lookup service or a list of them.
	Endpoint Endpoints `yaml:"endpoint"`
	// Timeout bounds a single pass in seconds. It defaults to Interval.
	Timeout int `yaml:"timeout"`
	// Interface, when set, reads the address from a local interface instead of Endpoint.
	Interface string `yaml:"interface"`

	Notification *Notification `yaml:"notification"`
}

// Endpoints accepts a single URL or a sequence of URLs.
type Endpoints []string

func (e *Endpoints) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*e = Endpoints{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*e = list
		return nil
	}
	return fmt.Errorf("line %d: endpoint must be a URL or a list of URLs", value.Line)
}

type Notification struct {
	Enabled bool   `yaml:"enabled"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	// SMTP is host:port of the mail relay.
	SMTP string `yaml:"smtp"`
}

// Load reads, defaults, and validates the config file at path.
// All errors wrap cfddns.ErrConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", cfddns.ErrConfig, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %w", cfddns.ErrConfig, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", cfddns.ErrConfig, path, err)
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	c.Token = strings.TrimSpace(os.ExpandEnv(c.Token))
	c.TokenFile = os.ExpandEnv(c.TokenFile)

	if c.Interval < 0 {
		return fmt.Errorf("interval must be positive; got %d", c.Interval)
	}
	if c.Interval == 0 {
		c.Interval = int(cfddns.DefaultInterval / time.Second)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive; got %d", c.Timeout)
	}
	if len(c.Endpoint) == 0 {
		c.Endpoint = Endpoints{cfddns.DefaultEndpoint}
	}
	for _, e := range c.Endpoint {
		if u, err := url.Parse(e); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("endpoint %q must be an http or https URL", e)
		}
	}

	if n := c.Notification; n != nil && n.Enabled {
		if _, err := mail.ParseAddress(n.From); err != nil {
			return fmt.Errorf("notification.from: %w", err)
		}
		if _, err := mail.ParseAddress(n.To); err != nil {
			return fmt.Errorf("notification.to: %w", err)
		}
		if n.SMTP == "" {
			n.SMTP = cfddns.DefaultSMTPAddr
		}
		if _, _, err := cfddns.SplitSMTPAddr(n.SMTP); err != nil {
			return fmt.Errorf("notification.smtp: %w", err)
		}
	}
	return nil
}

func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// NotificationsEnabled reports whether a notification block is present and enabled.
func (c *Config) NotificationsEnabled() bool {
	return c.Notification != nil && c.Notification.Enabled
}

// APIToken returns Token, or the first line of TokenFile when Token is empty.
func (c *Config) APIToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.TokenFile == "" {
		return "", fmt.Errorf("%w: one of token or token_file is required", cfddns.ErrConfig)
	}
	if err := VerifyPermissions(c.TokenFile); err != nil {
		return "", fmt.Errorf("%w: %w", cfddns.ErrConfig, err)
	}
	key, err := ReadKey(c.TokenFile)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cfddns.ErrConfig, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: token file %q is empty", cfddns.ErrConfig, c.TokenFile)
	}
	return key, nil
}

// ReadKey returns the first line of the file at path.
func ReadKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// VerifyPermissions checks that a key file is only accessible by its owner.
func VerifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}
	return nil
}
