// Package asm reads action programs written in a YAML assembly format.
//
// A file holds a content version, an optional constant pool, the main
// code list and optionally a clip hierarchy with frame scripts:
//
//	version: 7
//	constants: [a, b]
//	code:
//	  - push: [5, 3]
//	  - op: Add2
//	  - op: If
//	    target: done
//	  - label: done
//	clips:
//	  - name: ball
//	    frames: 3
//	    scripts:
//	      1: [{push: [hello]}, {op: Trace}]
//
// Every problem found while assembling is reported, not only the first.
package asm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/actionvm/bytecode"
	"gopkg.in/yaml.v3"
)

// Assembly is an assembled file.
type Assembly struct {
	Name string
	// Version is the content version declared by the file, or zero.
	Version int
	Program *bytecode.Program
	Clips   []*Clip
}

// Clip describes a movie clip to create before the program runs.
type Clip struct {
	Name    string
	Frames  int
	Depth   int
	Labels  map[string]int
	Scripts map[int]*bytecode.Program
	Clips   []*Clip
}

type fileYAML struct {
	Version   int         `yaml:"version"`
	Constants []string    `yaml:"constants"`
	Code      []entryYAML `yaml:"code"`
	Clips     []clipYAML  `yaml:"clips"`
}

type clipYAML struct {
	Name    string              `yaml:"name"`
	Frames  int                 `yaml:"frames"`
	Depth   int                 `yaml:"depth"`
	Labels  map[string]int      `yaml:"labels"`
	Scripts map[int][]entryYAML `yaml:"scripts"`
	Clips   []clipYAML          `yaml:"clips"`
}

type bindingYAML struct {
	Kind  string `yaml:"kind"`
	Index int    `yaml:"index"`
}

type entryYAML struct {
	Op    string      `yaml:"op"`
	Label string      `yaml:"label"`
	Push  []yaml.Node `yaml:"push"`

	Target     string   `yaml:"target"`
	Frame      int      `yaml:"frame"`
	FrameLabel string   `yaml:"frame_label"`
	Play       bool     `yaml:"play"`
	Skip       int      `yaml:"skip"`
	URL        string   `yaml:"url"`
	Window     string   `yaml:"window"`
	Path       string   `yaml:"path"`
	Flags      int      `yaml:"flags"`
	Bias       int      `yaml:"bias"`
	Register   int      `yaml:"register"`
	Strings    []string `yaml:"strings"`
	Mode       int      `yaml:"mode"`

	Name       string        `yaml:"name"`
	Params     []string      `yaml:"params"`
	Registers  int           `yaml:"registers"`
	Allocation []bindingYAML `yaml:"allocation"`
	Suppress   []string      `yaml:"suppress"`
	Body       []entryYAML   `yaml:"body"`

	CatchName     string      `yaml:"catch_name"`
	CatchRegister *int        `yaml:"catch_register"`
	Try           []entryYAML `yaml:"try"`
	Catch         []entryYAML `yaml:"catch"`
	Finally       []entryYAML `yaml:"finally"`
}

// ParseFile assembles the file at path.
func ParseFile(path string) (*Assembly, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse assembles a YAML document. Unknown fields are rejected.
func Parse(name string, data []byte) (*Assembly, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var raw fileYAML
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("asm: %s is empty", name)
		}
		return nil, fmt.Errorf("asm: parse %s: %w", name, err)
	}

	a := &assembler{}
	if raw.Version < 0 {
		a.errorf("version", "must not be negative")
	}
	code := raw.Code
	if len(raw.Constants) > 0 {
		pool := entryYAML{Op: "ConstantPool", Strings: raw.Constants}
		code = append([]entryYAML{pool}, code...)
	}
	result := &Assembly{
		Name:    name,
		Version: raw.Version,
		Program: a.code("code", code, name),
	}
	for i, c := range raw.Clips {
		if clip := a.clip(fmt.Sprintf("clips[%d]", i), c); clip != nil {
			result.Clips = append(result.Clips, clip)
		}
	}
	if err := a.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *assembler) clip(path string, raw clipYAML) *Clip {
	if raw.Name == "" {
		a.errorf(path, "clip needs a name")
	}
	frames := raw.Frames
	if frames == 0 {
		frames = 1
	}
	if frames < 0 {
		a.errorf(path, "frames must be positive")
		frames = 1
	}
	clip := &Clip{
		Name:    raw.Name,
		Frames:  frames,
		Depth:   raw.Depth,
		Labels:  map[string]int{},
		Scripts: map[int]*bytecode.Program{},
	}
	for label, frame := range raw.Labels {
		if frame < 1 || frame > frames {
			a.errorf(path+".labels."+label, "frame %d is out of range", frame)
		}
		clip.Labels[label] = frame
	}
	for frame, entries := range raw.Scripts {
		p := fmt.Sprintf("%s.scripts[%d]", path, frame)
		if frame < 1 || frame > frames {
			a.errorf(p, "frame %d is out of range", frame)
		}
		clip.Scripts[frame] = a.code(p, entries, fmt.Sprintf("%s:%d", raw.Name, frame))
	}
	for i, child := range raw.Clips {
		if c := a.clip(fmt.Sprintf("%s.clips[%d]", path, i), child); c != nil {
			clip.Clips = append(clip.Clips, c)
		}
	}
	return clip
}
