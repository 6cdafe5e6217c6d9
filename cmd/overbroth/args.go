package main

import (
	"math"
	"strconv"
	"time"

	"github.com/gogpu/overbroth"
)

// numArgs is the number of positional parameters the command accepts.
const numArgs = 8

// params is what the positional arguments describe: the render itself and
// how often a preview frame is written.
type params struct {
	cfg   overbroth.Config
	frame time.Duration
}

func defaultParams() params {
	return params{cfg: overbroth.DefaultConfig()}
}

// parseArgs reads
//
//	width height re im planeWidth target workers frameMs
//
// All or nothing: with any other argument count, or if any value is
// malformed, non-finite or out of range, the defaults are returned with
// ok == false.
func parseArgs(args []string) (p params, ok bool) {
	if len(args) != numArgs {
		return defaultParams(), false
	}

	var (
		ints   [4]int
		floats [3]float64
	)
	intArgs := []int{0, 1, 5, 6}
	for i, idx := range intArgs {
		v, err := strconv.Atoi(args[idx])
		if err != nil {
			return defaultParams(), false
		}
		ints[i] = v
	}
	for i := range floats {
		v, err := strconv.ParseFloat(args[2+i], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return defaultParams(), false
		}
		floats[i] = v
	}
	frameMs, err := strconv.ParseUint(args[7], 10, 32)
	if err != nil {
		return defaultParams(), false
	}

	p = params{
		cfg: overbroth.Config{
			Width:      ints[0],
			Height:     ints[1],
			CenterRe:   floats[0],
			CenterIm:   floats[1],
			PlaneWidth: floats[2],
			Target:     ints[2],
			Workers:    ints[3],
		},
		frame: time.Duration(frameMs) * time.Millisecond,
	}
	if p.cfg.Validate() != nil || p.cfg.PlaneWidth < 0 {
		return defaultParams(), false
	}
	return p, true
}
