package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/raphaelgruber/tablemap-go/internal/client"
)

// Shared-table target modes.
const (
	TargetModeNew      = "new"
	TargetModeExisting = "existing"
)

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ResolveTarget validates and normalizes a "map into one specific table"
// configuration. Table names are lowered and trimmed; a new-table target
// must name a valid identifier, an existing-table target must name the
// table it maps into.
func ResolveTarget(target client.SharedTableTarget) (client.SharedTableTarget, error) {
	mode := strings.ToLower(strings.TrimSpace(target.Mode))
	name := strings.ToLower(strings.TrimSpace(target.TableName))

	switch mode {
	case TargetModeNew, TargetModeExisting:
	case "":
		return client.SharedTableTarget{}, fmt.Errorf("shared table target: mode is required (new or existing)")
	default:
		return client.SharedTableTarget{}, fmt.Errorf("shared table target: unknown mode %q", target.Mode)
	}

	if name == "" {
		return client.SharedTableTarget{}, fmt.Errorf("shared table target: table name is required")
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	if !tableNamePattern.MatchString(name) {
		return client.SharedTableTarget{}, fmt.Errorf("shared table target: invalid table name %q", target.TableName)
	}

	return client.SharedTableTarget{Mode: mode, TableName: name}, nil
}
