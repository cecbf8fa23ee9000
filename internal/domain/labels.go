package domain

// Tag keys read from directory entries. Databases are discovered by these tags
// and their names are matched against the naming template built from them.
const (
	TagEnvironment = "environment"
	TagNamespace   = "namespace"
	TagProduct     = "product"
	TagType        = "type"
	TagLocation    = "location"
	TagService     = "service"
)

// Label keys used on containers that belong to a refreshable environment.
const (
	LabelEnvironment = "envrefresh.environment"
	LabelNamespace   = "envrefresh.namespace"
	LabelManaged     = "envrefresh.managed"
)

// ResourceTypeDatabase is the value of TagType for database entities.
const ResourceTypeDatabase = "database"
