package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/util"
)

// Report output formats accepted by --format.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

var formats = []string{FormatTable, FormatJSON, FormatMarkdown}

// parseFormat validates a --format value. --json forces json.
func parseFormat(flag string) (string, error) {
	if machineMode {
		return FormatJSON, nil
	}
	f := strings.ToLower(strings.TrimSpace(flag))
	if f == "" {
		return FormatTable, nil
	}
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", unknownValue("format", flag, formats)
}

// parseKind validates a scan kind argument.
func parseKind(arg string) (report.Kind, error) {
	k := report.Kind(strings.ToLower(strings.TrimSpace(arg)))
	if k.Valid() {
		return k, nil
	}
	names := make([]string, len(report.Kinds))
	for i, kind := range report.Kinds {
		names[i] = string(kind)
	}
	return "", unknownValue("scan kind", arg, names)
}

// parseDurationFlag parses a duration flag. Returns zero if the flag is empty.
func parseDurationFlag(name, flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(flag)
	if err != nil || d <= 0 {
		if err == nil {
			err = fmt.Errorf("must be positive")
		}
		return 0, errors.WrapWithCode(err, errors.ErrInvalidInput,
			fmt.Sprintf("'%s' doesn't look like a valid --%s", flag, name),
			"Try something like 500ms, 2s or 1m.")
	}
	return d, nil
}

func unknownValue(what, got string, valid []string) error {
	suggestion := fmt.Sprintf("Valid values: %s", strings.Join(valid, ", "))
	if similar := util.SuggestSimilar(got, valid, 1); len(similar) > 0 {
		suggestion = fmt.Sprintf("Did you mean %q?", similar[0])
	}
	return errors.New(errors.ErrInvalidInput, fmt.Sprintf("Unknown %s: %s", what, got), suggestion)
}
