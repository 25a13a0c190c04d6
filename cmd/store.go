package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine-cli/internal/config"
	"github.com/sells-group/dealmachine-cli/internal/store"
)

// initStore opens the configured scrape log store and applies its schema.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if err := c.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
