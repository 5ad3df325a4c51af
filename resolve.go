package factory

import (
	"context"
	"fmt"
	"sort"
)

// resolveAttrs produces a fully resolved attribute mapping: producer
// defaults shallow-merged with caller overrides (override wins per
// top-level key), then every value resolved through the invocation's
// resolution context. Keys resolve in sorted order so sequences draw
// deterministic values within one instance.
func resolveAttrs(ctx context.Context, rc *resolution, mode opMode, defaults, overrides Attrs) (Attrs, error) {
	merged := mergeAttrs(defaults, overrides)

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		resolved, err := rc.resolveValue(ctx, mode, merged[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		merged[k] = resolved
	}
	return merged, nil
}
