package domain

import (
	"sort"
	"strings"
)

// EnvironmentRef identifies a logical deployment slice. Namespace
// distinguishes tenant sub-environments sharing one environment.
type EnvironmentRef struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// String renders the reference as name or name/namespace.
func (e EnvironmentRef) String() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Name + "/" + e.Namespace
}

// IsZero reports whether no environment was given.
func (e EnvironmentRef) IsZero() bool {
	return e.Name == "" && e.Namespace == ""
}

// Resource is an entity returned by the resource directory.
type Resource struct {
	Name           string            `json:"name"`
	ResourceGroup  string            `json:"resourceGroup"`
	SubscriptionID string            `json:"subscriptionId"`
	Server         string            `json:"server,omitempty"`
	Type           string            `json:"type,omitempty"`
	Location       string            `json:"location,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// Tag returns the tag value for key, matching the key case-insensitively.
func (r Resource) Tag(key string) string {
	if v, ok := r.Tags[key]; ok {
		return v
	}
	for k, v := range r.Tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// TagFilter selects directory entries whose tags equal every given value.
type TagFilter map[string]string

// String renders the filter deterministically for logs and diagnostics.
func (f TagFilter) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, ",")
}

// EnvironmentFilter returns the tag filter selecting databases of env.
func EnvironmentFilter(env EnvironmentRef) TagFilter {
	filter := TagFilter{
		TagEnvironment: env.Name,
		TagType:        ResourceTypeDatabase,
	}
	if env.Namespace != "" {
		filter[TagNamespace] = env.Namespace
	}
	return filter
}

// NameTemplate is the conventional naming scheme for databases:
//
//	{product}-{type}-{environment}[-{namespace}]-{location}-{service}
type NameTemplate struct {
	Product     string
	Type        string
	Environment string
	Namespace   string
	Location    string
	Service     string
}

// NameTemplateFor builds the template from a resource's own tags.
func NameTemplateFor(r Resource) NameTemplate {
	location := r.Tag(TagLocation)
	if location == "" {
		location = r.Location
	}
	return NameTemplate{
		Product:     r.Tag(TagProduct),
		Type:        r.Tag(TagType),
		Environment: r.Tag(TagEnvironment),
		Namespace:   r.Tag(TagNamespace),
		Location:    location,
		Service:     r.Tag(TagService),
	}
}

// Missing lists the required attributes that are empty.
func (t NameTemplate) Missing() []string {
	var missing []string
	for _, attr := range []struct{ key, value string }{
		{TagProduct, t.Product},
		{TagType, t.Type},
		{TagEnvironment, t.Environment},
		{TagLocation, t.Location},
		{TagService, t.Service},
	} {
		if attr.value == "" {
			missing = append(missing, attr.key)
		}
	}
	return missing
}

// Expected returns the name an entity with these attributes must carry.
func (t NameTemplate) Expected() string {
	segments := []string{t.Product, t.Type, t.Environment}
	if t.Namespace != "" {
		segments = append(segments, t.Namespace)
	}
	segments = append(segments, t.Location, t.Service)
	return strings.ToLower(strings.Join(segments, "-"))
}

// Matches reports whether name follows the template.
func (t NameTemplate) Matches(name string) bool {
	if len(t.Missing()) > 0 {
		return false
	}
	return strings.EqualFold(name, t.Expected())
}
