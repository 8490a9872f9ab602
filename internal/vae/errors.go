package vae

import (
	"errors"

	"github.com/born-ml/vae3d/internal/config"
	"github.com/born-ml/vae3d/internal/nn"
)

// Error values callers can match with errors.Is.
var (
	// ErrInvalidConfig is matched by configuration errors from New and NewLoss.
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrShape is matched by input tensors the model cannot accept.
	ErrShape = nn.ErrShape

	// ErrNumericAnomaly reports a NaN or infinite loss term.
	ErrNumericAnomaly = errors.New("numeric anomaly")
)

// ShapeError describes a rejected tensor shape. Layers panic with it;
// Model.CheckInput returns it.
type ShapeError = nn.ShapeError

// ConfigError describes a missing or malformed configuration key.
type ConfigError = config.ConfigError
