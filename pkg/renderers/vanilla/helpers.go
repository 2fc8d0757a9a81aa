package vanilla

import (
	"strings"

	"github.com/goliatone/go-formflow/pkg/renderers/vanilla/components"
)

func componentLabelID(controlID string) string {
	controlID = strings.TrimSpace(controlID)
	if controlID == "" {
		return ""
	}
	return controlID + "-label"
}

// labelSupportsFor reports whether the component renders a single control a
// <label for> can point at.
func labelSupportsFor(componentName string) bool {
	switch strings.TrimSpace(componentName) {
	case components.NameRadio, components.NameCheckboxGroup:
		return false
	default:
		return true
	}
}

func sanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.HasPrefix(token, "formflow-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

func resolveAsset(base, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "/") {
		return src
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return src
	}
	return strings.TrimSuffix(base, "/") + "/" + src
}
