// Command cherrytrace loads a lens prescription and reports on it: a
// paraxial/component summary, a 3D ray trace dump, or an HTTP inspection
// server, one subcommand per external interface.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kmdouglass/cherrytrace/pkg/optics/config"
	"github.com/kmdouglass/cherrytrace/pkg/optics/describe"
	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/paraxial"
	"github.com/kmdouglass/cherrytrace/pkg/optics/raytrace"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
	"github.com/kmdouglass/cherrytrace/web/inspect"
)

var airConst = material.Spec{Real: material.RealSpec{Kind: material.RealConstant, Constant: 1.0}}

func loadModel(path string) (*config.Prescription, *system.SequentialModel, error) {
	prescription, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}

	aperture, fields, gaps, surfaces, err := prescription.Specs()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	model, err := system.BuildSequentialModel(aperture, fields, gaps, surfaces, prescription.Wavelengths)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: building model: %w", path, err)
	}
	return prescription, model, nil
}

func describeCommand(cCtx *cli.Context) error {
	path := cCtx.Args().First()
	if path == "" {
		return fmt.Errorf("describe requires a prescription path")
	}

	prescription, model, err := loadModel(path)
	if err != nil {
		return err
	}

	snap, err := describe.Describe(model, airConst, prescription.ObjSpaceTelecentric)
	if err != nil {
		return fmt.Errorf("describing %s: %w", path, err)
	}

	fmt.Printf("Prescription: %s\n", path)
	fmt.Printf("Surfaces: %d, Components: %d, Sub-models: %d\n",
		len(snap.Surfaces), len(snap.Components), len(snap.SubModels))
	for _, sm := range snap.SubModels {
		fmt.Printf("  wavelength=%d axis=%s stop=%d entrancePupil=%+v exitPupil=%+v",
			sm.WavelengthIndex, sm.Axis, sm.ApertureStop, sm.EntrancePupil, sm.ExitPupil)
		if sm.Cardinals != nil {
			fmt.Printf(" cardinals=%+v", *sm.Cardinals)
		}
		fmt.Println()
	}

	if cCtx.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return nil
}

func traceCommand(cCtx *cli.Context) error {
	path := cCtx.Args().First()
	if path == "" {
		return fmt.Errorf("trace requires a prescription path")
	}

	prescription, model, err := loadModel(path)
	if err != nil {
		return err
	}

	aperture, fields, _, _, err := prescription.Specs()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	pview, err := paraxial.NewView(model, prescription.ObjSpaceTelecentric)
	if err != nil {
		return fmt.Errorf("%s: building paraxial view: %w", path, err)
	}

	var samplingOverride *system.PupilSampling
	if cCtx.IsSet("grid-spacing") {
		samplingOverride = &system.PupilSampling{Kind: system.SquareGrid, Spacing: cCtx.Float64("grid-spacing")}
	}

	results, err := raytrace.RayTrace3D(aperture, fields, model, pview, samplingOverride, 1000, 4)
	if err != nil {
		return fmt.Errorf("%s: tracing: %w", path, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func serveCommand(cCtx *cli.Context) error {
	path := cCtx.Args().First()
	if path == "" {
		return fmt.Errorf("serve requires a prescription path")
	}

	srv, err := inspect.NewServer(cCtx.Int("port"), path)
	if err != nil {
		return err
	}
	return srv.Start()
}

func main() {
	app := &cli.App{
		Name:  "cherrytrace",
		Usage: "inspect and trace sequential optical systems",
		Commands: []*cli.Command{
			{
				Name:      "describe",
				Usage:     "print a paraxial and component summary for a prescription",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "also print the full JSON description"},
				},
				Action: describeCommand,
			},
			{
				Name:      "trace",
				Usage:     "dump a 3D ray trace of every field's pupil bundle through a prescription as JSON",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "grid-spacing", Usage: "override every field's pupil sampling with a square grid of this normalized spacing"},
				},
				Action: traceCommand,
			},
			{
				Name:      "serve",
				Usage:     "serve a prescription's description over HTTP",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Value: 8080, Usage: "port to listen on"},
				},
				Action: serveCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cherrytrace: %v\n", err)
		os.Exit(1)
	}
}
