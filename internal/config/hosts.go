package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Travis-Britz/cfddns"
)

// LoadHostList reads the newline-delimited hostname file at path.
func LoadHostList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading host list: %w", cfddns.ErrConfig, err)
	}
	defer f.Close()
	return ParseHostList(f)
}

// ParseHostList returns one hostname per line.
// Surrounding whitespace is trimmed; blank lines and lines starting with "#" are skipped.
// Order is preserved, since it decides the order of updates and report lines.
func ParseHostList(r io.Reader) ([]string, error) {
	var hosts []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading host list: %w", cfddns.ErrConfig, err)
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: host list is empty", cfddns.ErrConfig)
	}
	return hosts, nil
}
