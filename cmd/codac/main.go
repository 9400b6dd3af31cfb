// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command codac compiles Coda programs into Standard MIDI Files.
//
//	codac -i song.coda -o song
//
// writes song.mid. When the input is a glob matching several files, the
// output names a directory that receives one .mid file per input.
package main

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/urfave/cli/v2"

	"github.com/bufbuild/coda"
	"github.com/bufbuild/coda/internal/config"
	"github.com/bufbuild/coda/midi"
	"github.com/bufbuild/coda/render"
	"github.com/bufbuild/coda/report"
	"github.com/bufbuild/coda/reporter"
)

// errReported is returned once diagnostics have been written to stderr.
var errReported = errors.New("compilation failed")

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

var (
	openSoundFont = render.OpenSoundFont
	renderWAV     = render.WAV
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "codac:", err)
		}
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "codac",
		Usage:     "compile Coda programs into Standard MIDI Files",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input-file",
				Aliases:  []string{"i"},
				Usage:    "Coda source file, or a glob such as songs/**/*.coda",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output-file",
				Aliases: []string{"o"},
				Usage:   "output name without extension; a directory if the input matches several files",
				Value:   "output",
			},
			&cli.PathFlag{Name: "config", Usage: "YAML configuration file"},
			&cli.BoolFlag{Name: "meta", Usage: "emit time signature and key signature events"},
			&cli.PathFlag{Name: "soundfont", Usage: "SoundFont 2 file used to render WAV output"},
			&cli.BoolFlag{Name: "wav", Usage: "also write a WAV rendering of each song"},
			&cli.IntFlag{Name: "program", Usage: "General MIDI program used to render WAV output"},
			&cli.BoolFlag{Name: "dump", Usage: "print a listing of the encoded MIDI events"},
			&cli.StringFlag{Name: "color", Usage: "color diagnostics: auto, always or never", Value: config.ColorAuto},
			&cli.IntFlag{Name: "parallelism", Aliases: []string{"j"}, Usage: "files compiled at once"},
		},
		Action: func(c *cli.Context) error {
			return run(c, stdout, stderr)
		},
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func run(c *cli.Context, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	wav := c.Bool("wav")
	if wav && cfg.Render.SoundFont == "" {
		return errors.New("--wav needs a SoundFont, from --soundfont or render.soundfont")
	}
	style := styleFor(cfg.Color, stderr)

	pattern := c.String("input-file")
	inputs, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("bad input pattern %q: %w", pattern, err)
	}
	if len(inputs) == 0 {
		d := report.New(report.Error, fmt.Errorf("invalid file path supplied: %q", pattern), report.MentionFile(pattern))
		fmt.Fprintln(stderr, d.Render(style))
		return errReported
	}

	var mu sync.Mutex
	var diags report.Report
	comp := coda.Compiler{
		Resolver:       &coda.SourceResolver{},
		MaxParallelism: cfg.Parallelism,
		Encoder:        cfg.Encoder(),
		Reporter: reporter.NewReporter(
			func(err reporter.ErrorWithPos) error {
				mu.Lock()
				defer mu.Unlock()
				diags.Push(coda.Diagnose(err))
				return nil
			},
			func(err reporter.ErrorWithPos) {
				mu.Lock()
				defer mu.Unlock()
				diags.Push(coda.DiagnoseWarning(err))
			},
		),
	}

	results, err := comp.Compile(c.Context, inputs...)
	if err != nil && !errors.Is(err, reporter.ErrInvalidSource) {
		diags.Push(coda.Diagnose(err))
	}
	sortDiagnostics(diags)
	if len(diags) > 0 {
		fmt.Fprint(stderr, diags.Render(style))
	}
	if err != nil {
		return errReported
	}

	bases, err := outputs(cfg.Output, inputs)
	if err != nil {
		return err
	}
	var sf *meltysynth.SoundFont
	if wav {
		if sf, err = openSoundFont(cfg.Render.SoundFont); err != nil {
			return err
		}
	}

	// Everything is encoded and rendered before the first file is written.
	var files []output
	for i, res := range results {
		if c.Bool("dump") {
			fmt.Fprintf(stdout, "# %s\n", res.Path)
			if err := midi.Disassemble(stdout, res.MIDI); err != nil {
				return err
			}
		}

		files = append(files, output{
			name: bases[i] + ".mid",
			data: res.MIDI,
			summary: fmt.Sprintf("%s: wrote %s (%s, %s)", res.Path, bases[i]+".mid",
				humanize.Bytes(uint64(len(res.MIDI))),
				durafmt.Parse(res.Song.Duration()).LimitFirstN(2).Format(shortUnits)),
		})
		if sf != nil {
			var buf bytes.Buffer
			if err := renderWAV(&buf, sf, res.Song, cfg.RenderOptions()); err != nil {
				return fmt.Errorf("%s: %w", res.Path, err)
			}
			files = append(files, output{
				name:    bases[i] + ".wav",
				data:    buf.Bytes(),
				summary: fmt.Sprintf("%s: wrote %s (%s)", res.Path, bases[i]+".wav", humanize.Bytes(uint64(buf.Len()))),
			})
		}
	}

	if len(inputs) > 1 {
		if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := os.WriteFile(f.name, f.data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(stdout, f.summary)
	}
	return nil
}

// output is a file ready to be written.
type output struct {
	name    string
	data    []byte
	summary string
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.Path("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("output-file") {
		cfg.Output = c.String("output-file")
	}
	if c.IsSet("meta") {
		cfg.MIDI.Meta = c.Bool("meta")
	}
	if c.IsSet("soundfont") {
		cfg.Render.SoundFont = c.Path("soundfont")
	}
	if c.IsSet("program") {
		cfg.Render.Program = int32(c.Int("program"))
	}
	if c.IsSet("color") {
		cfg.Color = c.String("color")
	}
	if c.IsSet("parallelism") {
		cfg.Parallelism = c.Int("parallelism")
	}
	return cfg, cfg.Validate()
}

// outputs returns the output path, without extension, of each input. A
// single input is written to out itself; several go into out as a
// directory, named after the inputs. Nothing is created on disk.
func outputs(out string, inputs []string) ([]string, error) {
	if len(inputs) == 1 {
		return []string{out}, nil
	}
	bases := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, input := range inputs {
		name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s.mid", prev, input, filepath.Join(out, name))
		}
		seen[name] = input
		bases[i] = filepath.Join(out, name)
	}
	return bases, nil
}

// sortDiagnostics orders diagnostics by file and position, since files are
// compiled concurrently.
func sortDiagnostics(diags report.Report) {
	slices.SortStableFunc(diags, func(a, b report.Diagnostic) int {
		fa, sa, _ := a.Primary()
		fb, sb, _ := b.Primary()
		return cmp.Or(strings.Compare(fa.Path, fb.Path), cmp.Compare(sa.Offset, sb.Offset))
	})
}

func styleFor(color string, w io.Writer) report.Style {
	switch color {
	case config.ColorAlways:
		return report.Colored
	case config.ColorNever:
		return report.Monochrome
	}
	if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return report.Colored
		}
	}
	return report.Monochrome
}
