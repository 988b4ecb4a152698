package langserver

import "fmt"

// Profile names.
const (
	ProfileV3 = "v3"
	ProfileV4 = "v4"
)

// Settings returns the configuration sections served to the language server
// through workspace/configuration for profile. overrides are merged over the
// tailwindCSS section.
func Settings(profile string, overrides map[string]any) (map[string]any, error) {
	lint := map[string]any{
		"cssConflict":              "warning",
		"invalidApply":             "error",
		"invalidScreen":            "error",
		"invalidVariant":           "error",
		"invalidConfigPath":        "error",
		"invalidTailwindDirective": "error",
		"invalidSourceDirective":   "error",
		"recommendedVariantOrder":  "warning",
	}

	switch profile {
	case ProfileV3:
	case ProfileV4:
		lint["suggestCanonicalClasses"] = "warning"
		lint["usedBlocklistedClass"] = "warning"
	default:
		return nil, fmt.Errorf("unknown engine profile %q", profile)
	}

	tailwind := map[string]any{
		"validate":             true,
		"lint":                 lint,
		"codeActions":          true,
		"hovers":               false,
		"suggestions":          false,
		"colorDecorators":      false,
		"showPixelEquivalents": true,
		"rootFontSize":         16,
		"classAttributes":      []any{"class", "className", "ngClass", "class:list"},
		"classFunctions":       []any{},
		"includeLanguages":     map[string]any{},
		"emmetCompletions":     false,
		"experimental": map[string]any{
			"classRegex": []any{},
		},
		"files": map[string]any{
			"exclude": []any{"**/.git/**", "**/node_modules/**", "**/.hg/**", "**/.svn/**"},
		},
	}
	mergeSettings(tailwind, overrides)

	return map[string]any{
		"tailwindCSS": tailwind,
		"editor": map[string]any{
			"tabSize": 2,
		},
	}, nil
}

// mergeSettings deep-merges src into dst. Nested maps are merged key by
// key; every other value replaces what dst held.
func mergeSettings(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				mergeSettings(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}
