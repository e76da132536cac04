package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile flattens a two-space indented YAML file into environment variables:
// nested keys are joined with "_" and upper-cased, so http.read_timeout becomes HTTP_READ_TIMEOUT.
// Values may reference the environment as ${VAR} or ${VAR:-default}.
// Variables that are already set win over the file.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}
	defer file.Close()

	var sections []string
	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		raw := scanner.Text()
		content := stripComment(strings.TrimSpace(raw))
		if content == "" {
			continue
		}

		depth := indentOf(raw) / 2
		if depth > len(sections) {
			return fmt.Errorf("line %d: unexpected indentation", lineNo)
		}
		sections = sections[:depth]

		key, value, ok := strings.Cut(content, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if value == "" {
			sections = append(sections, key)
			continue
		}

		name := strings.ToUpper(strings.Join(append(sections[:depth:depth], key), "_"))
		if os.Getenv(name) != "" {
			continue
		}
		if err := os.Setenv(name, expand(unquote(value))); err != nil {
			return fmt.Errorf("could not set env var %s: %w", name, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	return nil
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// stripComment drops a trailing "# ..." that is not inside quotes.
func stripComment(s string) string {
	var quote rune
	for i, ch := range s {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#' && (i == 0 || s[i-1] == ' '):
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// expand resolves ${VAR} and ${VAR:-default}. Anything else is returned as is.
func expand(value string) string {
	inner, ok := strings.CutPrefix(value, "${")
	if !ok {
		return value
	}
	inner, ok = strings.CutSuffix(inner, "}")
	if !ok {
		return value
	}

	name, def, _ := strings.Cut(inner, ":-")
	if v := os.Getenv(strings.TrimSpace(name)); v != "" {
		return v
	}
	return strings.TrimSpace(def)
}
