// inspect_artifacts loads model and scaler through the service's loader and
// reports what the service would see at startup.
//
// Usage:
//
//	inspect_artifacts --model model.json --scaler scaler.json --variant extended
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/config"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

func main() {
	defaults := ml.DefaultArtifactConfig()
	app := &cli.App{
		Name:  "inspect_artifacts",
		Usage: "Check that model and scaler artifacts load and agree with the form schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Value: defaults.ModelPath, Usage: "model artifact path"},
			&cli.StringFlag{Name: "scaler", Value: defaults.ScalerPath, Usage: "scaler artifact path"},
			&cli.StringFlag{Name: "variant", Value: string(ml.VariantExtended), Usage: "form variant (basic, extended)"},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config.yaml whose label table is verified against the model",
				EnvVars: []string{config.EnvConfigPath},
			},
		},
		Action: func(c *cli.Context) error {
			opts := inspectOptions{
				Artifacts: ml.ArtifactConfig{ModelPath: c.String("model"), ScalerPath: c.String("scaler")},
				Variant:   ml.Variant(c.String("variant")),
			}
			if path := c.String("config"); path != "" {
				cfg, err := config.Load(path)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				opts.Labels = cfg.LabelTable()
			}
			return inspect(opts, c.App.Writer)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

type inspectOptions struct {
	Artifacts ml.ArtifactConfig
	Variant   ml.Variant
	// Labels defaults to the failure-type table, decoded for the extended variant.
	Labels *ml.LabelTable
}

func inspect(opts inspectOptions, out io.Writer) error {
	schema, err := ml.SchemaFor(opts.Variant)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	store, err := ml.LoadArtifacts(opts.Artifacts, schema)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	labels := opts.Labels
	if labels == nil {
		labels = ml.NewLabelTable(schema.Variant == ml.VariantExtended, ml.DefaultFailureLabels())
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "variant\t%s\n", schema.Variant)
	fmt.Fprintf(tw, "arity\t%d\n", schema.Len())
	fmt.Fprintf(tw, "columns\t%s\n", strings.Join(schema.Names(), ", "))
	fmt.Fprintf(tw, "scaler\t%s (%s)\n", store.Config().ScalerPath, store.ScalerKind())
	fmt.Fprintf(tw, "model\t%s (%s)\n", store.Config().ModelPath, store.ModelKind())
	fmt.Fprintf(tw, "probabilities\t%t\n", store.SupportsProbabilities())

	classes := store.Classes()
	if len(classes) == 0 {
		fmt.Fprintf(tw, "classes\tnot exposed by the model\n")
	} else {
		for _, id := range classes {
			fmt.Fprintf(tw, "class %d\t%s\n", id, labels.Resolve(id))
		}
	}

	if err := labels.Verify(classes); err != nil {
		fmt.Fprintf(tw, "labels\tWARNING: %v\n", err)
	} else {
		fmt.Fprintf(tw, "labels\tok\n")
	}
	return tw.Flush()
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
