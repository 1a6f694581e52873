package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/fivetwenty-io/osclient/pkg/openstack"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Static errors for err113 compliance.
var (
	ErrIdentityEndpointRequired = errors.New("identity endpoint is required")
	ErrNotAuthenticated         = errors.New("not authenticated, use 'osc login' first")
	ErrEndpointNotInCatalog     = errors.New("no endpoint in catalog")
)

// tableWriter builds the rows of the table output format.
type tableWriter func(table *tablewriter.Table) error

// render writes data as JSON or YAML, or calls rows to fill a table.
func render(w io.Writer, data any, rows tableWriter) error {
	switch format := viper.GetString("output"); format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(data)
	case constants.FormatTable, "":
		table := tablewriter.NewWriter(w)

		err := rows(table)
		if err != nil {
			return err
		}

		err = table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

// renderResource prints one resource as a property/value table.
func renderResource(w io.Writer, res *osapi.Resource, fields ...string) error {
	return render(w, res.Attributes(), func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		for _, field := range fields {
			value := attributeString(res, field)
			if value == "" {
				value = constants.NotAvailable
			}

			err := table.Append([]string{field, value})
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	})
}

// renderResources prints a listing, one row per resource.
func renderResources(w io.Writer, items []*osapi.Resource, fields ...string) error {
	data := make([]osapi.Attributes, 0, len(items))
	for _, item := range items {
		data = append(data, item.Attributes())
	}

	return render(w, data, func(table *tablewriter.Table) error {
		header := make([]any, 0, len(fields))
		for _, field := range fields {
			header = append(header, field)
		}

		table.Header(header...)

		for _, item := range items {
			row := make([]string, 0, len(fields))
			for _, field := range fields {
				row = append(row, attributeString(item, field))
			}

			err := table.Append(row)
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		return nil
	})
}

func attributeString(res *osapi.Resource, name string) string {
	value, ok := res.Get(name)
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		return strconv.Itoa(len(v))
	case []*osapi.Resource:
		return strconv.Itoa(len(v))
	default:
		return fmt.Sprint(v)
	}
}

// newLogger returns a console logger at debug level when --verbose is set.
func newLogger() osapi.Logger {
	if viper.GetBool("verbose") {
		return osapi.NewConsoleLogger("debug")
	}

	return osapi.NopLogger{}
}

// createClient builds a client for the selected cloud.
func createClient(ctx context.Context) (*openstack.Client, error) {
	name, cloud, err := selectedCloud()
	if err != nil {
		return nil, err
	}

	config, err := cloud.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("cloud %s: %w", name, err)
	}

	client, err := openstack.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// listOptions reads the shared --limit and --marker flags.
func listOptions(cmd *cobra.Command) *osapi.ListOptions {
	opts := osapi.NewListOptions()

	if limit, err := cmd.Flags().GetInt("limit"); err == nil && limit > 0 {
		opts.WithLimit(limit)
	}

	if marker, err := cmd.Flags().GetString("marker"); err == nil && marker != "" {
		opts.WithMarker(marker)
	}

	return opts
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "page size requested from the service")
	cmd.Flags().String("marker", "", "start listing after this item")
	cmd.Flags().Int("max", 0, "stop after this many items (0 for all)")
}

// collect drains it, stopping after --max items when set.
func collect(cmd *cobra.Command, it *osapi.Iterator) ([]*osapi.Resource, error) {
	maxItems, _ := cmd.Flags().GetInt("max")

	var items []*osapi.Resource

	for item, err := range it.Seq() {
		if err != nil {
			return nil, err
		}

		items = append(items, item)
		if maxItems > 0 && len(items) >= maxItems {
			break
		}
	}

	return items, nil
}
