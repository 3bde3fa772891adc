package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
)

// envPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}. Bare $VAR
// is left alone so DSNs and passwords containing '$' survive expansion.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// envExpander expands environment variables in configuration text.
type envExpander struct {
	// strict fails if a plain ${VAR} is not set.
	strict bool
	// lookup resolves variables. Defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// Expand replaces every reference in input.
//   - ${VAR} expands to VAR, or "" when unset (an error when strict)
//   - ${VAR:-default} expands to VAR, or default when unset or empty
//   - ${VAR:?message} fails with message when VAR is unset or empty
func (e *envExpander) Expand(input string) (string, error) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	result := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		m := envPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := lookup(name)

		switch op {
		case ":-":
			if !ok || value == "" {
				return arg
			}
		case ":?":
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
				return match
			}
		default:
			if !ok && e.strict {
				missing = append(missing, name)
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment variables, leaving unset ones empty.
func ExpandEnv(input string) string {
	e := &envExpander{}
	result, err := e.Expand(input)
	if err != nil {
		return input
	}
	return result
}

// ExpandEnvStrict expands environment variables and reports every missing one.
func ExpandEnvStrict(input string) (string, error) {
	e := &envExpander{strict: true}
	return e.Expand(input)
}
