package azure

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"
	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/logging"
)

// Ensure ControlPlane implements the database ports.
var (
	_ out.DatabaseControlPlane = (*ControlPlane)(nil)
	_ out.DatabaseCopier       = (*ControlPlane)(nil)
)

// ControlPlane drives Azure SQL databases. One DatabasesClient is kept
// per subscription.
type ControlPlane struct {
	cred    azcore.TokenCredential
	options *arm.ClientOptions

	mu      sync.Mutex
	clients map[string]*armsql.DatabasesClient
}

// NewControlPlane creates a control plane authenticated with cred.
func NewControlPlane(cred azcore.TokenCredential, options *arm.ClientOptions) *ControlPlane {
	return &ControlPlane{
		cred:    cred,
		options: options,
		clients: make(map[string]*armsql.DatabasesClient),
	}
}

func (c *ControlPlane) databases(subscriptionID string) (*armsql.DatabasesClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[subscriptionID]; ok {
		return client, nil
	}
	client, err := armsql.NewDatabasesClient(subscriptionID, c.cred, c.options)
	if err != nil {
		return nil, fmt.Errorf("failed to create databases client: %w", err)
	}
	c.clients[subscriptionID] = client
	return client, nil
}

func (c *ControlPlane) get(ctx context.Context, db domain.DatabaseRef) (armsql.Database, error) {
	client, err := c.databases(db.SubscriptionID)
	if err != nil {
		return armsql.Database{}, err
	}
	resp, err := client.Get(ctx, db.ResourceGroup, db.Server, db.Name, nil)
	if err != nil {
		return armsql.Database{}, err
	}
	return resp.Database, nil
}

// RestoreAsync submits a point-in-time restore of source into destName on
// the same server. It returns once the request is accepted.
func (c *ControlPlane) RestoreAsync(ctx context.Context, source domain.DatabaseRef, destName string, pointInTime time.Time) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "azure.sql",
		zerowrap.FieldAction:  "RestoreAsync",
		logging.FieldTarget:   source.String(),
	})
	log := zerowrap.FromCtx(ctx)

	src, err := c.get(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to read source database: %w", mapError(err))
	}
	client, err := c.databases(source.SubscriptionID)
	if err != nil {
		return err
	}

	params := armsql.Database{
		Location: src.Location,
		Properties: &armsql.DatabaseProperties{
			CreateMode:         to.Ptr(armsql.CreateModePointInTimeRestore),
			SourceDatabaseID:   src.ID,
			RestorePointInTime: to.Ptr(pointInTime.UTC()),
		},
	}
	if _, err := client.BeginCreateOrUpdate(ctx, source.ResourceGroup, source.Server, destName, params, nil); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRestoreRejected, mapError(err))
	}

	log.Info().Str("destination", destName).Time("point_in_time", pointInTime.UTC()).Msg("restore submitted")
	return nil
}

// GetStatus reads the database resource. A missing database is reported
// as NotFound rather than an error.
func (c *ControlPlane) GetStatus(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	res, err := c.get(ctx, db)
	if err != nil {
		if isNotFound(err) {
			return domain.DatabaseNotFound, nil
		}
		return domain.DatabaseUnknown, mapError(err)
	}
	return statusOf(res), nil
}

// QueryState lists the server's databases and reads the status from the
// listing. It answers through a different API path than GetStatus.
func (c *ControlPlane) QueryState(ctx context.Context, db domain.DatabaseRef) (domain.DatabaseStatus, error) {
	found := domain.DatabaseNotFound
	err := c.eachDatabase(ctx, db, func(d *armsql.Database) bool {
		if d.Name != nil && strings.EqualFold(*d.Name, db.Name) {
			found = statusOf(*d)
			return false
		}
		return true
	})
	if err != nil {
		return domain.DatabaseUnknown, err
	}
	return found, nil
}

// EarliestRestorePoint returns the oldest instant the database can be
// restored to.
func (c *ControlPlane) EarliestRestorePoint(ctx context.Context, db domain.DatabaseRef) (time.Time, error) {
	res, err := c.get(ctx, db)
	if err != nil {
		return time.Time{}, mapError(err)
	}
	if res.Properties == nil || res.Properties.EarliestRestoreDate == nil {
		return time.Time{}, fmt.Errorf("database %s reports no earliest restore point", db)
	}
	return res.Properties.EarliestRestoreDate.UTC(), nil
}

// ListDatabases returns the names of every database on server.Server.
func (c *ControlPlane) ListDatabases(ctx context.Context, server domain.DatabaseRef) ([]string, error) {
	var names []string
	err := c.eachDatabase(ctx, server, func(d *armsql.Database) bool {
		if d.Name != nil {
			names = append(names, *d.Name)
		}
		return true
	})
	return names, err
}

func (c *ControlPlane) eachDatabase(ctx context.Context, server domain.DatabaseRef, fn func(*armsql.Database) bool) error {
	client, err := c.databases(server.SubscriptionID)
	if err != nil {
		return err
	}
	pager := client.NewListByServerPager(server.ResourceGroup, server.Server, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return mapError(err)
		}
		for _, d := range page.Value {
			if d == nil {
				continue
			}
			if !fn(d) {
				return nil
			}
		}
	}
	return nil
}

// Delete removes the database and waits for the deletion to finish.
// Deleting a database that does not exist succeeds.
func (c *ControlPlane) Delete(ctx context.Context, db domain.DatabaseRef) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "azure.sql",
		zerowrap.FieldAction:  "Delete",
		logging.FieldTarget:   db.String(),
	})
	log := zerowrap.FromCtx(ctx)

	client, err := c.databases(db.SubscriptionID)
	if err != nil {
		return err
	}
	poller, err := client.BeginDelete(ctx, db.ResourceGroup, db.Server, db.Name, nil)
	if err != nil {
		if isNotFound(err) {
			log.Debug().Msg("database already absent")
			return nil
		}
		return mapError(err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return mapError(err)
	}

	log.Info().Msg("database deleted")
	return nil
}

// ReplaceWithCopy drops destination, if present, and recreates it as a
// copy of source. It returns once the copy is online.
func (c *ControlPlane) ReplaceWithCopy(ctx context.Context, source, destination domain.DatabaseRef) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "azure.sql",
		zerowrap.FieldAction:  "ReplaceWithCopy",
		logging.FieldTarget:   destination.String(),
	})
	log := zerowrap.FromCtx(ctx)

	src, err := c.get(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to read source database: %w", mapError(err))
	}
	location := src.Location
	if dst, err := c.get(ctx, destination); err == nil {
		location = dst.Location
	} else if !isNotFound(err) {
		return fmt.Errorf("failed to read destination database: %w", mapError(err))
	}

	if err := c.Delete(ctx, destination); err != nil {
		return fmt.Errorf("failed to drop destination database: %w", err)
	}

	client, err := c.databases(destination.SubscriptionID)
	if err != nil {
		return err
	}
	params := armsql.Database{
		Location: location,
		Properties: &armsql.DatabaseProperties{
			CreateMode:       to.Ptr(armsql.CreateModeCopy),
			SourceDatabaseID: src.ID,
		},
	}
	poller, err := client.BeginCreateOrUpdate(ctx, destination.ResourceGroup, destination.Server, destination.Name, params, nil)
	if err != nil {
		return fmt.Errorf("failed to start copy: %w", mapError(err))
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("copy did not complete: %w", mapError(err))
	}

	log.Info().Str("source", source.String()).Msg("database replaced with copy")
	return nil
}

func statusOf(db armsql.Database) domain.DatabaseStatus {
	if db.Properties == nil || db.Properties.Status == nil {
		return domain.DatabaseUnknown
	}
	return domain.ParseDatabaseStatus(string(*db.Properties.Status))
}
