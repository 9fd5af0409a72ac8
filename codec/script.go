package codec

import (
	"context"
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/assetman/asset"
)

// Script is a compiled tengo program.
type Script struct {
	Source   []byte
	compiled *tengo.Compiled
}

// Run executes a fresh copy of the program and returns it so globals can be
// read back.
func (s *Script) Run(ctx context.Context) (*tengo.Compiled, error) {
	if s == nil || s.compiled == nil {
		return nil, fmt.Errorf("nil script")
	}
	c := s.compiled.Clone()
	if err := c.RunContext(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Defines reports whether the program leaves the global name set after a
// run. Globals only hold values once the program ran, so this runs a copy.
func (s *Script) Defines(name string) bool {
	c, err := s.Run(context.Background())
	if err != nil {
		return false
	}
	return c.IsDefined(name)
}

// ScriptCodec compiles tengo sources. Modules limits the stdlib modules the
// script may import; nil allows all of them.
type ScriptCodec struct {
	Modules []string
}

func (c ScriptCodec) Decode(name string, data []byte) (*Script, error) {
	mods := c.Modules
	if mods == nil {
		mods = stdlib.AllModuleNames()
	}
	src := append([]byte(nil), data...)
	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(mods...))
	compiled, err := script.Compile()
	if err != nil {
		return nil, asset.DecodeError(name, "tengo compile", err)
	}
	return &Script{Source: src, compiled: compiled}, nil
}

func (ScriptCodec) Encode(name string, s *Script) ([]byte, error) {
	if s == nil || len(strings.TrimSpace(string(s.Source))) == 0 {
		return nil, asset.EncodeError(name, "empty script", nil)
	}
	return append([]byte(nil), s.Source...), nil
}
