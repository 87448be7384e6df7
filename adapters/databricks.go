package adapters

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"

	_ "github.com/databricks/databricks-sql-go"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/core/builders"
)

// Register client
func init() {
	_ = register(&Databricks{}, "databricks")
}

var _ core.Adapter = (*Databricks)(nil)

// Databricks runs the check against a databricks sql warehouse. Warehouses
// speak spark sql, so range and version go through the sql fallbacks.
type Databricks struct{}

// Connect parses the connectionURL and returns a new core.Driver
// connectionURL is a DSN structure in the format of:
//
// token:[my_token]@[hostname]:[port]/[endpoint http path]?param=value
//
// see https://github.com/databricks/databricks-sql-go for more information.
func (d *Databricks) Connect(connectionURL string) (core.Driver, error) {
	parsedURL, err := url.Parse(connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// NOTE: the warehouse may need minutes to boot, so there is no ping here.
	db, err := sql.Open("databricks", parsedURL.String())
	if err != nil {
		return nil, fmt.Errorf("invalid databricks connection string: %w", err)
	}

	return &databricksDriver{
		c: builders.NewClient(db,
			builders.WithCustomTypeProcessor("binary", func(v any) any {
				b, ok := v.([]byte)
				if !ok {
					return v
				}
				return hex.EncodeToString(b)
			}),
		),
	}, nil
}
