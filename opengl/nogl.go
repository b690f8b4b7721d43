//go:build nogl
// +build nogl

package opengl

import (
	"context"
	"fmt"
	"os"

	"github.com/sul31man/bacteria"
)

// Run returns an error explaining that OpenGL support is disabled.
func Run(ctx context.Context, src Source, f *bacteria.FlowField, conf *Config) error {
	return fmt.Errorf("%s was built without OpenGL support", os.Args[0])
}
