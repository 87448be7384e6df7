package core

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"text/template"
)

var expandFuncs = template.FuncMap{
	// env returns the value of an environment variable or an empty string
	"env": os.Getenv,
	// envOr returns the value of an environment variable or fallback if unset
	"envOr": func(envvar, fallback string) string {
		if v, ok := os.LookupEnv(envvar); ok {
			return v
		}
		return fallback
	},
	// exec runs a command (through a shell if it contains a pipe) and
	// returns its trimmed stdout
	"exec": func(line string) (string, error) {
		if strings.Contains(line, " | ") {
			out, err := exec.Command("sh", "-c", line).Output()
			return strings.TrimSpace(string(out)), err
		}

		fields := strings.Fields(line)
		if len(fields) < 1 {
			return "", errors.New("no command provided")
		}

		out, err := exec.Command(fields[0], fields[1:]...).Output()
		return strings.TrimSpace(string(out)), err
	},
}

// Expand evaluates {{ env "X" }}, {{ envOr "X" "fallback" }} and
// {{ exec "cmd" }} templates in value.
func Expand(value string) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("expand_variables").Funcs(expandFuncs).Parse(value)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	err = tmpl.Execute(&out, nil)
	if err != nil {
		return "", err
	}

	return out.String(), nil
}

// expandOrDefault silently suppresses errors.
func expandOrDefault(value string) string {
	ex, err := Expand(value)
	if err != nil {
		return value
	}
	return ex
}
