package relation

import (
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// projectAttributes are the root attributes applied to the destination
// project. Everything else at the root is ignored.
var projectAttributes = map[string]bool{
	"description":    true,
	"visibility":     true,
	"default_branch": true,
	"archived":       true,
}

// ProjectAttributes selects the root attributes to apply to the destination
// project, translating the legacy numeric visibility_level.
func ProjectAttributes(root map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	for k, v := range root {
		if projectAttributes[k] && v != nil {
			out[k] = v
		}
	}

	if raw, ok := root["visibility_level"]; ok && raw != nil {
		if _, set := out["visibility"]; !set {
			level, ok := reader.ToInt64(raw)
			if !ok {
				return nil, invalid("project", "visibility_level %v is not a number", raw)
			}
			vis, ok := model.VisibilityFromLevel(level)
			if !ok {
				return nil, invalid("project", "unknown visibility_level %d", level)
			}
			out["visibility"] = string(vis)
		}
	}
	return out, nil
}
