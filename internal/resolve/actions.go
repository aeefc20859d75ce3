package resolve

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/linkmeta/internal/common"
	"github.com/dtnitsch/linkmeta/models"
)

// Output is one line of `linkmeta resolve` output.
type Output struct {
	URL string `json:"url"`
	models.MetadataResult
	Strategy string `json:"strategy,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ResolveAction prints the metadata triple for each URL argument as JSON
// lines. With --strict the pipeline runs without fallback and failures are
// reported in the error field.
func ResolveAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one URL is required")
	}

	app, err := common.NewApp(c, false)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Bool("pretty") {
		enc.SetIndent("", "  ")
	}

	for _, rawURL := range c.Args().Slice() {
		out := Output{URL: rawURL}
		if c.Bool("strict") {
			result, strategy, err := app.Resolver.Attempt(c.Context, rawURL)
			out.MetadataResult = result
			out.Strategy = strategy.String()
			if err != nil {
				out.Error = err.Error()
			}
		} else {
			result, err := app.Resolver.Resolve(c.Context, rawURL)
			if err != nil {
				return err
			}
			out.MetadataResult = result
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
