package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/vae3d/backend/cpu"
	"github.com/born-ml/vae3d/nn"
	"github.com/born-ml/vae3d/tensor"
	"github.com/born-ml/vae3d/vae"
)

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show the stage plan and parameter counts",
		Args:  cobra.NoArgs,
		RunE:  ParamsHandler,
	}
	extentFlags(cmd)
	return cmd
}

// ParamsHandler prints one row per residual block, the totals, and the
// extents an input of --frames x --height x --width goes through.
func ParamsHandler(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	extent, err := readExtent(cmd)
	if err != nil {
		return err
	}

	model, err := vae.New(cfg, cpu.New(), vae.WithLogger(newLogger(cmd, cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	plan := model.Plan()

	var data [][]string
	appendStages := func(part string, stages []vae.Stage, blocks *nn.Sequential[*cpu.Backend]) {
		for i, stage := range stages {
			data = append(data, []string{
				part,
				strconv.Itoa(i),
				strconv.Itoa(stage.InChannels),
				strconv.Itoa(stage.OutChannels),
				stage.Stride.String(),
				strconv.Itoa(nn.NumParameters(blocks.Module(i))),
			})
		}
	}
	appendStages("encoder", plan.Encoder, model.Encoder().Blocks())
	appendStages("decoder", plan.Decoder, model.Decoder().Blocks())

	out := cmd.OutOrStdout()
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"PART", "STAGE", "IN", "OUT", "STRIDE", "PARAMS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	counts := model.ParameterCounts()
	in := tensor.Dims3(extent)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "encoder parameters: %d\n", counts.Encoder)
	fmt.Fprintf(out, "head parameters:    %d\n", counts.Heads)
	fmt.Fprintf(out, "decoder parameters: %d\n", counts.Decoder)
	fmt.Fprintf(out, "total parameters:   %d\n", counts.Total())
	fmt.Fprintf(out, "latent:             %d x %v\n", plan.Latent, plan.LatentShape(in))
	fmt.Fprintf(out, "reconstruction:     %d x %v (round trip: %t)\n", vae.OutputChannels, plan.OutputShape(in), plan.RoundTrips(in))

	return nil
}
