package tool

import "github.com/hupe1980/toolmesh/core"

// ComputeActiveTools derives the tool window for the next turn from the
// window carried by the previous message.
//
// Base tools come first and win name collisions. When the previous window
// carried more than maxDynamic dynamic (non-base) entries, every base tool is
// kept and only the maxDynamic most recently added dynamic tools survive;
// older dynamic tools are evicted first. Relative order is preserved.
// A maxDynamic of zero or less leaves only the base tools once any dynamic
// tool is carried.
//
// Earlier releases inverted this guard (dynamic tools were never evicted and
// base tools dropped out past the threshold). Callers relying on that window
// will now see old dynamic tools disappear.
func ComputeActiveTools(last, base []core.ToolDefinition, maxDynamic int) []core.ToolDefinition {
	merged := core.MergeTools(base, last)

	isBase := make(map[string]bool, len(base))
	for _, b := range base {
		isBase[b.Name] = true
	}

	dynamicCount := 0
	for _, d := range last {
		if !isBase[d.Name] {
			dynamicCount++
		}
	}
	if maxDynamic < 0 {
		maxDynamic = 0
	}
	if dynamicCount <= maxDynamic {
		return merged
	}

	keep := make([]bool, len(merged))
	kept := 0
	for i := len(merged) - 1; i >= 0; i-- {
		switch {
		case isBase[merged[i].Name]:
			keep[i] = true
		case kept < maxDynamic:
			keep[i] = true
			kept++
		}
	}

	window := make([]core.ToolDefinition, 0, len(base)+kept)
	for i, d := range merged {
		if keep[i] {
			window = append(window, d)
		}
	}
	return window
}
