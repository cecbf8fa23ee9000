package azure

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Ensure Directory implements out.ResourceDirectory.
var _ out.ResourceDirectory = (*Directory)(nil)

const sqlDatabaseType = "microsoft.sql/servers/databases"

// Directory finds SQL databases by tag through Azure Resource Graph.
type Directory struct {
	client        *armresourcegraph.Client
	subscriptions []string
}

// NewDirectory creates a directory scoped to subscriptions. An empty list
// queries every subscription the credential can read.
func NewDirectory(cred azcore.TokenCredential, subscriptions []string, options *arm.ClientOptions) (*Directory, error) {
	client, err := armresourcegraph.NewClient(cred, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource graph client: %w", err)
	}
	return &Directory{client: client, subscriptions: subscriptions}, nil
}

// Find returns every SQL database whose tags match filter, following skip
// tokens until the result set is exhausted.
func (d *Directory) Find(ctx context.Context, filter domain.TagFilter) ([]domain.Resource, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "azure.directory",
		zerowrap.FieldAction:  "Find",
	})
	log := zerowrap.FromCtx(ctx)

	req := armresourcegraph.QueryRequest{
		Query: to.Ptr(buildQuery(filter)),
		Options: &armresourcegraph.QueryRequestOptions{
			ResultFormat: to.Ptr(armresourcegraph.ResultFormatObjectArray),
		},
	}
	if len(d.subscriptions) > 0 {
		req.Subscriptions = to.SliceOfPtrs(d.subscriptions...)
	}

	var resources []domain.Resource
	for {
		resp, err := d.client.Resources(ctx, req, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDirectoryQuery, mapError(err))
		}
		page, err := parseRows(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDirectoryQuery, err)
		}
		resources = append(resources, page...)

		if resp.SkipToken == nil || *resp.SkipToken == "" {
			break
		}
		req.Options.SkipToken = resp.SkipToken
	}

	log.Debug().Str("filter", filter.String()).Int(zerowrap.FieldCount, len(resources)).Msg("directory query complete")
	return resources, nil
}

// buildQuery renders filter as a KQL query over SQL databases. Tag keys
// are emitted in sorted order so equal filters produce equal queries.
func buildQuery(filter domain.TagFilter) string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Resources\n| where type =~ " + kqlString(sqlDatabaseType))
	for _, k := range keys {
		fmt.Fprintf(&b, "\n| where tostring(tags[%s]) =~ %s", kqlString(k), kqlString(filter[k]))
	}
	b.WriteString("\n| project id, name, type, location, resourceGroup, subscriptionId, tags")
	return b.String()
}

func kqlString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// parseRows converts an object-array result into directory entries.
func parseRows(data any) ([]domain.Resource, error) {
	if data == nil {
		return nil, nil
	}
	rows, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected result format %T", data)
	}

	resources := make([]domain.Resource, 0, len(rows))
	for i, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d: unexpected format %T", i, raw)
		}
		id := stringField(row, "id")
		ref, err := parseDatabaseID(id)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		resources = append(resources, domain.Resource{
			Name:           stringField(row, "name"),
			ResourceGroup:  firstNonEmpty(stringField(row, "resourceGroup"), ref.ResourceGroup),
			SubscriptionID: firstNonEmpty(stringField(row, "subscriptionId"), ref.SubscriptionID),
			Server:         ref.Server,
			Type:           stringField(row, "type"),
			Location:       stringField(row, "location"),
			Tags:           tags(row["tags"]),
		})
	}
	return resources, nil
}

// parseDatabaseID splits a SQL database resource ID into its parts.
func parseDatabaseID(id string) (domain.DatabaseRef, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return domain.DatabaseRef{}, fmt.Errorf("invalid resource id %q: %w", id, err)
	}
	if rid.Parent == nil || !strings.EqualFold(rid.ResourceType.String(), "Microsoft.Sql/servers/databases") {
		return domain.DatabaseRef{}, fmt.Errorf("resource %q is not a SQL database", id)
	}
	return domain.DatabaseRef{
		SubscriptionID: rid.SubscriptionID,
		ResourceGroup:  rid.ResourceGroupName,
		Server:         rid.Parent.Name,
		Name:           rid.Name,
	}, nil
}

func stringField(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func tags(raw any) map[string]string {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
