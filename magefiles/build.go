//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const (
	shaderDir  = "assets/shaders"
	binaryName = "viking"
)

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to SPIR-V with glslc.
// Up to date outputs are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the viking binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Build engine...")
	_, err := executeCmd("go", withArgs("build", "-o", binaryName, "."), withStream())
	return err
}

func buildShaders() error {
	sources, err := shaderSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		dst := src + ".spv"
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(filepath.Base(src), "-o", filepath.Base(dst)), withDir(shaderDir), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func shaderSources() ([]string, error) {
	var sources []string
	for _, ext := range []string{"vert", "frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, "*."+ext))
		if err != nil {
			return nil, err
		}
		sources = append(sources, matches...)
	}
	return sources, nil
}
