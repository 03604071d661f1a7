package deploy

import (
	"context"
	"strings"

	"github.com/erik777/runkod-cli/internal/ui"
)

// Rule is a content heuristic. When Trips reports true for a file set the user is
// shown Warning and asked whether to carry on.
type Rule struct {
	Name    string
	Warning string
	Trips   func(files []string) bool
}

// NoMarkupRule trips when no file has the markup extension, such as ".html".
func NoMarkupRule(ext string) Rule {
	ext = strings.ToLower(ext)
	return Rule{
		Name:    "no-markup",
		Warning: ui.T("deploy.warning-no-html", ext),
		Trips: func(files []string) bool {
			return !anyHasSuffix(files, ext)
		},
	}
}

// ServerScriptRule trips when any file has one of the server-side script
// extensions, such as ".php".
func ServerScriptRule(exts ...string) Rule {
	lowered := make([]string, len(exts))
	for i, e := range exts {
		lowered[i] = strings.ToLower(e)
	}
	return Rule{
		Name:    "server-script",
		Warning: ui.T("deploy.warning-server-side", strings.Join(lowered, ", ")),
		Trips: func(files []string) bool {
			return anyHasSuffix(files, lowered...)
		},
	}
}

// DefaultRules are the markup check followed by the server script check.
func DefaultRules(markupExt string, scriptExts []string) []Rule {
	return []Rule{
		NoMarkupRule(markupExt),
		ServerScriptRule(scriptExts...),
	}
}

// Inspect evaluates rules in order, asking for confirmation on each one that trips.
// It reports false as soon as a confirmation is declined.
func Inspect(ctx context.Context, files []string, rules []Rule, c Confirmer) (bool, error) {
	for _, r := range rules {
		if !r.Trips(files) {
			continue
		}
		ok, err := c.Confirm(ctx, r.Warning)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func anyHasSuffix(files []string, suffixes ...string) bool {
	for _, f := range files {
		f = strings.ToLower(f)
		for _, s := range suffixes {
			if strings.HasSuffix(f, s) {
				return true
			}
		}
	}
	return false
}
