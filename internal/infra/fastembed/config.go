// Package fastembed embeds device descriptions with a local ONNX model.
package fastembed

import (
	"errors"
	"path/filepath"
)

const batchSize = 64

var ErrUnsupportedModel = errors.New("fastembed: unsupported model")

type Config struct {
	Model     string
	CacheDir  string
	MaxLength int
}

func (c Config) withDefaults() Config {
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(".", "models")
	}
	if c.MaxLength <= 0 {
		c.MaxLength = 512
	}
	return c
}
