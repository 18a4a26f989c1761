package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/actionvm"
	"github.com/deepnoodle-ai/actionvm/stage"
)

// runReport is the outcome of a run, shaped for json output.
type runReport struct {
	Result   any             `json:"result"`
	Traces   []string        `json:"traces"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
	Requests []stage.Request `json:"requests,omitempty"`
	Commands [][]string      `json:"commands,omitempty"`
	Stage    clipState       `json:"stage"`
	Error    string          `json:"error,omitempty"`
}

type clipState struct {
	Path     string      `json:"path"`
	Frame    int         `json:"frame"`
	Frames   int         `json:"frames"`
	Playing  bool        `json:"playing"`
	Children []clipState `json:"children,omitempty"`
}

func newRunReport(movie *actionvm.Movie, result any, err error) *runReport {
	rep := &runReport{
		Result:   jsonSafe(result),
		Traces:   movie.Traces(),
		Requests: movie.Requests(),
		Commands: movie.Player().Actions().Commands(),
		Stage:    stateOf(movie.Player().Root()),
	}
	if rep.Traces == nil {
		rep.Traces = []string{}
	}
	for _, w := range movie.Warnings() {
		rep.Warnings = append(rep.Warnings, w.Error())
	}
	for _, e := range movie.Errors() {
		rep.Errors = append(rep.Errors, e.Error())
	}
	if err != nil {
		rep.Error = err.Error()
	}
	return rep
}

func stateOf(clip *stage.Clip) clipState {
	state := clipState{
		Path:    clip.TargetPath(),
		Frame:   clip.CurrentFrame(),
		Frames:  clip.TotalFrames(),
		Playing: clip.Playing(),
	}
	for _, child := range clip.Children() {
		state.Children = append(state.Children, stateOf(child))
	}
	return state
}

// jsonSafe replaces numbers json cannot encode with their string form.
func jsonSafe(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

func (r *runReport) printText(out, errOut io.Writer, withStage bool) {
	if r.Result != nil {
		fmt.Fprintln(out, formatResult(r.Result))
	}
	for _, req := range r.Requests {
		method := req.Method
		if method == "" {
			method = "GET"
		}
		fmt.Fprintf(out, "%s %s %s -> %s\n", cyan(req.Kind), method, req.URL, req.Target)
	}
	for _, command := range r.Commands {
		fmt.Fprintf(out, "%s %s\n", cyan("fscommand"), strings.Join(command, " "))
	}
	for _, w := range r.Warnings {
		fmt.Fprintln(errOut, yellow(w))
	}
	for _, e := range r.Errors {
		fmt.Fprintln(errOut, red(e))
	}
	if withStage {
		printClip(out, r.Stage, 0)
	}
}

func printClip(w io.Writer, state clipState, depth int) {
	status := "stopped"
	if state.Playing {
		status = "playing"
	}
	fmt.Fprintf(w, "%s%s %d/%d %s\n", strings.Repeat("  ", depth), bold(state.Path), state.Frame, state.Frames, faint(status))
	for _, child := range state.Children {
		printClip(w, child, depth+1)
	}
}

func formatResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
