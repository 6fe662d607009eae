package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
)

// Catalog builds the scenarios from configuration, in run order.
func Catalog(cfg *config.Config) ([]Scenario, error) {
	valid := auth.FromConfig(cfg.Target.Credentials)
	sc := cfg.Scenarios

	rejection, err := optionalLocator("scenarios.login.rejection_indicator", sc.Login.RejectionIndicator)
	if err != nil {
		return nil, err
	}
	ready, err := optionalLocator("scenarios.admin.ready_indicator", sc.Admin.ReadyIndicator)
	if err != nil {
		return nil, err
	}

	checkpoints := make([]Checkpoint, 0, len(sc.Elements.Checkpoints))
	for i, cp := range sc.Elements.Checkpoints {
		loc, err := browser.ParseLocator(cp.Locator)
		if err != nil {
			return nil, fmt.Errorf("scenarios.elements.checkpoints[%d]: %w", i, err)
		}
		desc := cp.Description
		if desc == "" {
			desc = loc.String()
		}
		checkpoints = append(checkpoints, Checkpoint{Description: desc, Locator: loc})
	}

	return []Scenario{
		&Login{
			Invalid:            auth.FromConfig(cfg.Target.InvalidCredentials),
			Valid:              valid,
			RejectionIndicator: rejection,
			Settle:             sc.Login.Settle,
			AssertRejected:     sc.Login.AssertRejected,
		},
		&Admin{
			Credentials:    valid,
			Path:           sc.Admin.Path,
			ReadyIndicator: ready,
			Settle:         sc.Admin.Settle,
		},
		&Elements{
			Credentials: valid,
			Path:        sc.Elements.Path,
			Checkpoints: checkpoints,
		},
	}, nil
}

func optionalLocator(field, raw string) (browser.Locator, error) {
	if strings.TrimSpace(raw) == "" {
		return browser.Locator{}, nil
	}
	loc, err := browser.ParseLocator(raw)
	if err != nil {
		return browser.Locator{}, fmt.Errorf("%s: %w", field, err)
	}
	return loc, nil
}

// Select filters all down to the named scenarios. The catalog order is kept
// whatever order the names come in. No names selects everything.
func Select(all []Scenario, selected []string) ([]Scenario, error) {
	if len(selected) == 0 {
		return all, nil
	}
	wanted := make(map[string]bool, len(selected))
	for _, n := range selected {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var out []Scenario
	for _, s := range all {
		if wanted[s.Name()] {
			out = append(out, s)
			delete(wanted, s.Name())
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for n := range wanted {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown scenario(s) %s; available: %s", strings.Join(unknown, ", "), strings.Join(names(all), ", "))
	}
	return out, nil
}
