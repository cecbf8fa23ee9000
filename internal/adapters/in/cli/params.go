package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/pkg/duration"
)

// setter assigns one Key=Value argument to a parameter field.
type setter func(p *domain.RefreshParams, value string) error

// parameters maps lowercase keys to their setters. Keys are matched
// case-insensitively.
var parameters = map[string]setter{
	"source": func(p *domain.RefreshParams, v string) error {
		p.Source = parseEnvironment(v, p.Source.Namespace)
		return nil
	},
	"sourcenamespace": func(p *domain.RefreshParams, v string) error {
		p.Source.Namespace = v
		return nil
	},
	"destination": func(p *domain.RefreshParams, v string) error {
		p.Destination = parseEnvironment(v, p.Destination.Namespace)
		return nil
	},
	"destinationnamespace": func(p *domain.RefreshParams, v string) error {
		p.Destination.Namespace = v
		return nil
	},
	"product":         func(p *domain.RefreshParams, v string) error { p.Product = v; return nil },
	"restoredatetime": func(p *domain.RefreshParams, v string) error { p.RestoreDateTime = v; return nil },
	"timezone":        func(p *domain.RefreshParams, v string) error { p.Timezone = v; return nil },
	"grantaccount":    func(p *domain.RefreshParams, v string) error { p.GrantAccount = v; return nil },
	"maxwaitminutes":  intSetter(func(p *domain.RefreshParams, n int) { p.MaxWaitMinutes = &n }),
	"throttlelimit":   intSetter(func(p *domain.RefreshParams, n int) { p.ThrottleLimit = &n }),
	"propagationdelay": func(p *domain.RefreshParams, v string) error {
		d, err := duration.ParseMinutes(v)
		if err != nil {
			return err
		}
		p.PropagationDelay = &d
		return nil
	},
	"dryrun":      boolSetter(func(p *domain.RefreshParams, b bool) { p.DryRun = b }),
	"force":       boolSetter(func(p *domain.RefreshParams, b bool) { p.Force = b }),
	"autoapprove": boolSetter(func(p *domain.RefreshParams, b bool) { p.AutoApprove = b }),
}

// switches may be given without a value, meaning true.
var switches = map[string]bool{"dryrun": true, "force": true, "autoapprove": true}

// ParseAssignments maps ordered Key=Value arguments onto refresh
// parameters. Later assignments win. Unknown keys are rejected.
func ParseAssignments(args []string) (domain.RefreshParams, error) {
	var p domain.RefreshParams
	for _, arg := range args {
		if err := applyAssignment(&p, arg); err != nil {
			return domain.RefreshParams{}, err
		}
	}
	return p, nil
}

func applyAssignment(p *domain.RefreshParams, arg string) error {
	name, value, hasValue := strings.Cut(arg, "=")
	name = strings.TrimLeft(strings.TrimSpace(name), "-")
	key := strings.ToLower(name)

	set, ok := parameters[key]
	if !ok {
		return invalidParam("unknown parameter %q (known: %s)", name, strings.Join(knownParameters(), ", "))
	}
	if !hasValue {
		if !switches[key] {
			return invalidParam("parameter %s needs a value", name)
		}
		value = "true"
	}
	if err := set(p, strings.TrimSpace(value)); err != nil {
		return invalidParam("%s: %v", name, err)
	}
	return nil
}

func knownParameters() []string {
	names := []string{
		"Source", "SourceNamespace", "Destination", "DestinationNamespace", "Product",
		"RestoreDateTime", "Timezone", "MaxWaitMinutes", "ThrottleLimit", "PropagationDelay",
		"GrantAccount", "DryRun", "Force", "AutoApprove",
	}
	sort.Strings(names)
	return names
}

// parseEnvironment accepts "name" or "name/namespace".
func parseEnvironment(value, namespace string) domain.EnvironmentRef {
	name, ns, ok := strings.Cut(value, "/")
	if ok {
		namespace = ns
	}
	return domain.EnvironmentRef{Name: name, Namespace: namespace}
}

func intSetter(assign func(p *domain.RefreshParams, n int)) setter {
	return func(p *domain.RefreshParams, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", v)
		}
		assign(p, n)
		return nil
	}
}

func boolSetter(assign func(p *domain.RefreshParams, b bool)) setter {
	return func(p *domain.RefreshParams, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%q is not a boolean", v)
		}
		assign(p, b)
		return nil
	}
}

func invalidParam(format string, args ...any) error {
	return domain.NewPrerequisiteError("parse arguments", fmt.Errorf("%w: %s", domain.ErrInvalidParam, fmt.Sprintf(format, args...)))
}
