package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"

	"github.com/n0madic/go-likely/codec"
	"github.com/n0madic/go-likely/covariance"
)

const (
	representationCovariance = "covariance"
	representationInverse    = "inverse"
)

// element is one off-diagonal (or diagonal) entry of the described matrix.
// (row,col) and (col,row) refer to the same element.
type element struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Value float64 `json:"value"`
}

// matrixConfig describes a matrix through whichever representation it is
// known in.
type matrixConfig struct {
	Size int `json:"size"`
	// Representation is "covariance" (the default) or "inverse".
	Representation string    `json:"representation,omitempty"`
	Diagonal       []float64 `json:"diagonal,omitempty"`
	Elements       []element `json:"elements,omitempty"`
	// Seed for sampling; zero picks a time-based seed.
	Seed  int64  `json:"seed,omitempty"`
	Codec string `json:"codec,omitempty"`
}

func loadConfig(path string) (*matrixConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	var c matrixConfig
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config file %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &c, nil
}

func (c *matrixConfig) validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	switch c.Representation {
	case "", representationCovariance, representationInverse:
	default:
		return fmt.Errorf("representation must be %q or %q, got %q",
			representationCovariance, representationInverse, c.Representation)
	}
	if len(c.Diagonal) != 0 && len(c.Diagonal) != c.Size {
		return fmt.Errorf("diagonal has %d entries for size %d", len(c.Diagonal), c.Size)
	}
	if len(c.Diagonal) == 0 && len(c.Elements) == 0 {
		return fmt.Errorf("no diagonal or elements given")
	}
	if _, err := codec.ParseType(c.Codec); err != nil {
		return err
	}
	return nil
}

// build assembles the described matrix. Elements are applied after the
// diagonal, so an element on the diagonal overrides it.
func (c *matrixConfig) build(log *logrus.Entry) (*covariance.Matrix, error) {
	codecType, err := codec.ParseType(c.Codec)
	if err != nil {
		return nil, err
	}
	if c.Codec == "" {
		codecType = codec.Zstd
	}
	m, err := covariance.New(c.Size,
		covariance.WithLogger(log),
		covariance.WithRandomSeed(c.Seed),
		covariance.WithCodec(codecType),
	)
	if err != nil {
		return nil, err
	}

	set := m.SetCovariance
	if c.Representation == representationInverse {
		set = m.SetInverseCovariance
	}
	for i, v := range c.Diagonal {
		if err := set(i, i, v); err != nil {
			return nil, fmt.Errorf("diagonal %d: %w", i, err)
		}
	}
	for _, e := range c.Elements {
		if err := set(e.Row, e.Col, e.Value); err != nil {
			return nil, fmt.Errorf("element (%d,%d): %w", e.Row, e.Col, err)
		}
	}
	log.WithFields(logrus.Fields{
		"size":     c.Size,
		"state":    m.State(),
		"elements": len(c.Elements),
	}).Debug("Built matrix from config")
	return m, nil
}
