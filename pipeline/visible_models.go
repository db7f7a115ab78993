package pipeline

import (
	"net/url"
	"strings"

	"forecast-dashboard/models"
	"forecast-dashboard/reactive"
	"forecast-dashboard/urlstate"
)

// ResolveVisibleModels computes the default visible models. Requested names are
// matched case-insensitively against all and returned in their canonical
// spelling; when none match, configured wins if non-empty, else all.
func ResolveVisibleModels(requested, configured, all []string) []string {
	canonical := make(map[string]string, len(all))
	for _, name := range all {
		canonical[strings.ToLower(name)] = name
	}

	valid := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, r := range requested {
		name, ok := canonical[strings.ToLower(r)]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		valid = append(valid, name)
	}

	switch {
	case len(valid) > 0:
		return valid
	case len(configured) > 0:
		return configured
	default:
		return all
	}
}

// NewVisibleModelsDefault streams the visible-models default from the URL
// parameters, the configured default models and the models in the data view
func NewVisibleModelsDefault(params reactive.Stream[url.Values], configured, all reactive.Stream[[]string]) reactive.Stream[[]string] {
	return reactive.CombineLatest3[url.Values, []string, []string](
		urlstate.ParamChanges(params, models.ParamVisibleModels), configured, all,
		func(p url.Values, c, a []string) []string {
			return ResolveVisibleModels(p[models.ParamVisibleModels], c, a)
		})
}
