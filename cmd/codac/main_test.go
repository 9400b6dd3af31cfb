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

package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/coda/midi"
	"github.com/bufbuild/coda/render"
	"github.com/bufbuild/coda/sequence"
)

const header = "!key[C]!sig[4,4]!tmp[120]"

func codac(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut strings.Builder
	err = newApp(&out, &errOut).Run(append([]string{"codac", "--color", "never"}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, text string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestCompileFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "song.coda"), header+"{C4}")
	out := filepath.Join(dir, "song")

	stdout, stderr, err := codac(t, "-i", in, "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "wrote "+out+".mid (")

	got, err := os.ReadFile(out + ".mid")
	require.NoError(t, err)
	want, err := midi.Encode(120, []sequence.Element{sequence.Note{Pitch: "C4"}}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDump(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "song.coda"), header+"{C4}")
	stdout, _, err := codac(t, "-i", in, "-o", filepath.Join(dir, "out"), "--dump", "--meta")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# "+in)
	assert.Contains(t, stdout, "time-signature 4/4")
	assert.Contains(t, stdout, "note-on C4 key=48 velocity=64")
}

func TestGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.coda"), header+"{C4}")
	writeFile(t, filepath.Join(dir, "src", "nested", "b.coda"), header+"{D4 > E4}")
	out := filepath.Join(dir, "build")

	stdout, stderr, err := codac(t, "-i", filepath.Join(dir, "src", "**", "*.coda"), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "connector is reserved")
	assert.Equal(t, 2, strings.Count(stdout, "wrote"))
	assert.FileExists(t, filepath.Join(out, "a.mid"))
	assert.FileExists(t, filepath.Join(out, "b.mid"))
}

func TestGlobCollision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x", "a.coda"), header+"{C4}")
	writeFile(t, filepath.Join(dir, "y", "a.coda"), header+"{C4}")

	_, _, err := codac(t, "-i", filepath.Join(dir, "*", "a.coda"), "-o", filepath.Join(dir, "out"))
	assert.ErrorContains(t, err, "would both be written to")
}

func TestMissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	_, stderr, err := codac(t, "-i", filepath.Join(dir, "missing.coda"), "-o", out)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "invalid file path supplied")
	assert.NoFileExists(t, out+".mid")
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "a.coda"), header+"{C4}")
	writeFile(t, filepath.Join(dir, "b.coda"), header+"{C4 Fb4}")
	writeFile(t, filepath.Join(dir, "c.coda"), header+"{C4")
	out := filepath.Join(dir, "out")

	_, stderr, err := codac(t, "-i", filepath.Join(dir, "*.coda"), "-o", out)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, `error: unknown pitch: "Fb4"`)
	assert.Contains(t, stderr, "error: unexpected token: expected RBRACE, found end of input")
	assert.Contains(t, stderr, "encountered 2 errors")
	assert.Less(t, strings.Index(stderr, "b.coda"), strings.Index(stderr, "c.coda"))
	assert.NoDirExists(t, out)

	// A single bad file fails without writing anything either.
	_, _, err = codac(t, "-i", filepath.Join(dir, "b.coda"), "-o", out)
	require.ErrorIs(t, err, errReported)
	assert.NoFileExists(t, out+".mid")

	_, _, err = codac(t, "-i", good, "-o", out)
	require.NoError(t, err)
	assert.FileExists(t, out+".mid")
}

func TestConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "song.coda"), header+"{C4}")
	cfg := writeFile(t, filepath.Join(dir, "coda.yaml"), "output: "+filepath.Join(dir, "fromconfig")+"\nmidi:\n  division: 96\n")

	stdout, _, err := codac(t, "-i", in, "--config", cfg, "--dump")
	require.NoError(t, err)
	assert.Contains(t, stdout, "division=96")
	assert.FileExists(t, filepath.Join(dir, "fromconfig.mid"))

	// Flags override the file.
	_, _, err = codac(t, "-i", in, "--config", cfg, "-o", filepath.Join(dir, "fromflag"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "fromflag.mid"))

	bad := writeFile(t, filepath.Join(dir, "bad.yaml"), "midi:\n  velocity: 200\n")
	_, _, err = codac(t, "-i", in, "--config", bad)
	assert.ErrorContains(t, err, "velocity 200 is above 127")
}

func TestWAVNeedsSoundFont(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "song.coda"), header+"{C4}")
	_, _, err := codac(t, "-i", in, "-o", filepath.Join(dir, "out"), "--wav")
	assert.ErrorContains(t, err, "--wav needs a SoundFont")
	assert.NoFileExists(t, filepath.Join(dir, "out.mid"))
}

// Not parallel: replaces the package's SoundFont hooks.
func TestWAVFailureWritesNothing(t *testing.T) {
	openSoundFont = func(string) (*meltysynth.SoundFont, error) {
		return &meltysynth.SoundFont{}, nil
	}
	calls, failOn := 0, 2
	renderWAV = func(w io.Writer, _ *meltysynth.SoundFont, _ *midi.Song, _ render.Options) error {
		calls++
		if calls == failOn {
			return errors.New("synthesizer failed")
		}
		_, err := io.WriteString(w, "RIFF")
		return err
	}
	t.Cleanup(func() {
		openSoundFont = render.OpenSoundFont
		renderWAV = render.WAV
	})

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.coda"), header+"{C4}")
	writeFile(t, filepath.Join(dir, "b.coda"), header+"{D4}")
	out := filepath.Join(dir, "out")

	stdout, _, err := codac(t, "-i", filepath.Join(dir, "*.coda"), "-o", out, "--wav", "--soundfont", "test.sf2")
	require.ErrorContains(t, err, "synthesizer failed")
	assert.Equal(t, 2, calls)
	assert.NotContains(t, stdout, "wrote")
	assert.NoDirExists(t, out)

	calls, failOn = 0, 0
	stdout, _, err = codac(t, "-i", filepath.Join(dir, "*.coda"), "-o", out, "--wav", "--soundfont", "test.sf2")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(stdout, "wrote"))
	for _, name := range []string{"a.mid", "a.wav", "b.mid", "b.wav"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}
