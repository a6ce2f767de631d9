// Package shader loads the precompiled SPIR-V stages the triangle pipeline is
// built from.
package shader

//go:generate glslc ../../shaders/shader.vert -o ../../shaders/vert.spv
//go:generate glslc ../../shaders/shader.frag -o ../../shaders/frag.spv

import (
	"context"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Bytecode is a SPIR-V module as little-endian 32-bit words. The contents are
// opaque here; the driver validates them when the shader module is created.
type Bytecode []uint32

// Stages is the pair of stages the graphics pipeline needs.
type Stages struct {
	Vertex   Bytecode
	Fragment Bytecode
}

// Load reads both stages from fsys concurrently.
func Load(ctx context.Context, fsys fs.FS, vertexPath, fragmentPath string) (Stages, error) {
	var stages Stages

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		code, err := read(ctx, fsys, vertexPath)
		stages.Vertex = code
		return err
	})
	g.Go(func() error {
		code, err := read(ctx, fsys, fragmentPath)
		stages.Fragment = code
		return err
	})

	if err := g.Wait(); err != nil {
		return Stages{}, err
	}
	return stages, nil
}

// LoadFiles is Load against the operating system's file system. Paths may be
// absolute or relative to the working directory.
func LoadFiles(ctx context.Context, vertexPath, fragmentPath string) (Stages, error) {
	return Load(ctx, osFS{}, vertexPath, fragmentPath)
}

// osFS is an fs.FS over unrestricted OS paths. os.DirFS would reject absolute
// and parent-relative names.
type osFS struct{}

func (osFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

func (osFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func read(ctx context.Context, fsys fs.FS, path string) (Bytecode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}

	code, err := bytesToBytecode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return code, nil
}

func bytesToBytecode(b []byte) (Bytecode, error) {
	if len(b) == 0 {
		return nil, errors.New("empty shader file")
	}
	if len(b)%4 != 0 {
		return nil, errors.Newf("size %d is not a multiple of 4", len(b))
	}

	byteCode := make(Bytecode, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode, nil
}
