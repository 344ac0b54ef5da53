package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"pipelayout/internal/pipeline"
)

// LoadFile reads a pipeline description and builds a job request from it.
func LoadFile(path string) (pipeline.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Request{}, err
	}
	return Parse(path, data)
}

// Parse decodes a pipeline description held in memory. path is used for
// messages and the default pipeline name.
func Parse(path string, data []byte) (pipeline.Request, error) {
	f, err := Decode(path, data)
	if err != nil {
		return pipeline.Request{}, err
	}
	return f.Request(path)
}

// Decode parses and checks the shape of a description without building it.
func Decode(path string, data []byte) (*File, error) {
	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, &Error{Kind: ErrParse, Path: path, Msg: "failed to parse TOML", Err: errors.New(perr.Message)}
		}
		return nil, &Error{Kind: ErrParse, Path: path, Msg: "failed to parse TOML", Err: err}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, &Error{Kind: ErrUnknownKey, Path: path, Key: undecoded[0].String(), Msg: "unknown key"}
	}
	if !meta.IsDefined("function") || len(f.Function) == 0 {
		return nil, &Error{Kind: ErrMissing, Path: path, Key: "function", Msg: "missing [[function]]"}
	}
	if meta.IsDefined("target", "budget") && f.Target.Budget <= 0 {
		return nil, &Error{Kind: ErrBadValue, Path: path, Key: "target.budget", Msg: "budget must be positive"}
	}
	for i := range f.Function {
		fn := &f.Function[i]
		fn.Name = normalizeName(fn.Name)
		if fn.Name == "" {
			return nil, &Error{Kind: ErrMissing, Path: path, Key: "function.name", Msg: "function without a name"}
		}
		for j := range fn.Ops {
			fn.Ops[j].Callee = normalizeName(fn.Ops[j].Callee)
		}
	}
	f.Name = normalizeName(f.Name)
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &f, nil
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
