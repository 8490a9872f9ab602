package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/vae3d/autodiff"
	"github.com/born-ml/vae3d/backend/cpu"
	"github.com/born-ml/vae3d/nn"
	"github.com/born-ml/vae3d/optim"
	"github.com/born-ml/vae3d/tensor"
	"github.com/born-ml/vae3d/vae"
)

func newStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run training steps on a seeded random volume",
		Long: "Builds the model from the configuration, then runs forward, loss, backward\n" +
			"and one SGD update per step on a fixed random batch, logging every loss term.",
		Args: cobra.NoArgs,
		RunE: StepHandler,
	}
	extentFlags(cmd)
	cmd.Flags().Int("batch", 2, "Batch size")
	cmd.Flags().Int("steps", 1, "Number of optimization steps")
	cmd.Flags().Float32("lr", 1e-3, "SGD learning rate")
	cmd.Flags().Float32("momentum", 0, "SGD momentum")
	cmd.Flags().Uint64("seed", 0, "Seed for weights, data and sampling (default: config seed)")
	return cmd
}

// StepHandler runs --steps optimization steps and logs loss terms and latent
// statistics for each.
func StepHandler(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	extent, err := readExtent(cmd)
	if err != nil {
		return err
	}
	batch, _ := cmd.Flags().GetInt("batch")
	steps, _ := cmd.Flags().GetInt("steps")
	lr, _ := cmd.Flags().GetFloat32("lr")
	momentum, _ := cmd.Flags().GetFloat32("momentum")
	seed, _ := cmd.Flags().GetUint64("seed")
	if batch <= 0 || steps <= 0 {
		return fmt.Errorf("--batch and --steps must be positive")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	backend := autodiff.New(cpu.New())
	rng := tensor.NewRand(cfg.Seed)

	model, err := vae.New(cfg, backend, vae.WithLogger(logger), vae.WithRand(rng))
	if err != nil {
		return err
	}
	criterion, err := vae.NewLoss(cfg, backend)
	if err != nil {
		return err
	}

	in := tensor.Dims3(extent)
	if !model.Plan().RoundTrips(in) {
		logger.Warn("input extent does not round trip, reconstruction loss will fail",
			"extent", in, "output", model.Plan().OutputShape(in))
		return fmt.Errorf("extent %v reconstructs to %v", in, model.Plan().OutputShape(in))
	}

	// Targets are scored against every reconstruction channel.
	if cfg.InChannels != 1 && cfg.InChannels != vae.OutputChannels {
		return fmt.Errorf("step needs in_channels 1 or %d to score reconstructions, got %d",
			vae.OutputChannels, cfg.InChannels)
	}

	shape := tensor.Shape{batch, cfg.InChannels, extent[0], extent[1], extent[2]}
	if err := model.CheckInput(shape); err != nil {
		return err
	}
	x := tensor.Randn[float32](shape, rng, backend)

	params := model.Parameters()
	optimizer := optim.NewSGD(params, optim.SGDConfig{LR: lr, Momentum: momentum})

	for step := 1; step <= steps; step++ {
		tape := backend.Tape()
		tape.Clear()
		tape.StartRecording()
		recon, mean, logvar := model.Forward(x)
		loss := criterion.Forward(x, recon, mean, logvar)
		grads := autodiff.Backward(loss.Total, backend)
		tape.StopRecording()

		total, rec, kl := loss.Values()
		mu, sigma := latentSummary(mean.Data(), logvar.Data())
		logger.Info("step",
			"step", step,
			"total", total,
			"reconstruction", rec,
			"kl", kl,
			"latent_mean", mu.Mean,
			"latent_mean_std", mu.Std,
			"latent_sigma", sigma.Mean)
		logger.Debug("latent range", "step", step, "min", mu.Min, "max", mu.Max,
			"sigma_min", sigma.Min, "sigma_max", sigma.Max, "ops", tape.NumOps())

		if err := loss.CheckFinite(); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}

		nn.CollectGrads(params, grads)
		optimizer.Step(grads)
		optimizer.ZeroGrad()

		fmt.Fprintf(cmd.OutOrStdout(), "step %d: total=%.6f reconstruction=%.6f kl=%.6f\n", step, total, rec, kl)
	}

	return nil
}
