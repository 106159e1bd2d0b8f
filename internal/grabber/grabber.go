// Package grabber drives an external XMLTV schedule grabber for the
// favourite channels' station ids.
//
// Modern grabbers accept --channel-file to restrict output to a station
// list; older builds reject the flag, in which case the full grab runs
// and the document is pruned locally afterwards.
package grabber

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chanlink/chanlink/internal/pruner"
	"github.com/chanlink/chanlink/internal/xmltv"
)

// IsStationID reports whether a declared tvg-id is already a grabber
// station id rather than a guide channel id.
func IsStationID(id string) bool {
	id = strings.TrimSpace(id)
	return strings.HasPrefix(id, "I") && strings.Contains(strings.ToLower(id), "schedulesdirect")
}

// WriteStationList writes one station id per line.
func WriteStationList(path string, ids []string) error {
	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteString("\n")
	}
	return os.WriteFile(filepath.Clean(path), buf.Bytes(), 0o644)
}

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// Grabber invokes one external grabber command.
type Grabber struct {
	Command string
	Args    []string // extra args passed on every invocation
	log     *slog.Logger
	run     runFunc
}

// New builds a Grabber around command.
func New(command string, extraArgs []string, logger *slog.Logger) *Grabber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grabber{Command: command, Args: extraArgs, log: logger, run: execRun}
}

// Result describes how a grab completed.
type Result struct {
	OutputPath      string
	UsedChannelFile bool
	PrunedLocally   bool
	Stations        int
}

// Grab writes the station list, runs the grabber restricted to it, and
// falls back to a full grab plus local pruning when the grabber does not
// know --channel-file. Zero station ids is an error: a grab that can
// only produce an unrestricted dump is never wanted.
func (g *Grabber) Grab(ctx context.Context, ids []string, stationFile, outPath string) (Result, error) {
	res := Result{OutputPath: outPath, Stations: len(ids)}
	if len(ids) == 0 {
		return res, fmt.Errorf("grab: no station ids resolved")
	}
	if err := WriteStationList(stationFile, ids); err != nil {
		return res, err
	}

	args := append(append([]string{}, g.Args...), "--channel-file", stationFile, "--output", outPath)
	_, stderr, err := g.run(ctx, g.Command, args...)
	if err == nil {
		res.UsedChannelFile = true
		return res, nil
	}
	if !channelFileUnsupported(stderr) {
		return res, fmt.Errorf("grab: %s failed: %w\n%s", g.Command, err, strings.TrimSpace(string(stderr)))
	}

	g.log.Warn("grabber lacks --channel-file, grabbing everything and pruning locally", "command", g.Command)
	args = append(append([]string{}, g.Args...), "--output", outPath)
	_, stderr, err = g.run(ctx, g.Command, args...)
	if err != nil {
		return res, fmt.Errorf("grab: %s failed: %w\n%s", g.Command, err, strings.TrimSpace(string(stderr)))
	}
	if err := pruneLocal(outPath, ids); err != nil {
		return res, err
	}
	res.PrunedLocally = true
	return res, nil
}

// channelFileUnsupported detects the rejection message of grabbers
// predating the flag.
func channelFileUnsupported(stderr []byte) bool {
	s := strings.ToLower(string(stderr))
	return strings.Contains(s, "unknown option") || strings.Contains(s, "--channel-file")
}

func pruneLocal(path string, ids []string) error {
	doc, err := xmltv.ReadFile(path)
	if err != nil {
		return fmt.Errorf("grab: reading unrestricted output: %w", err)
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	pruned := pruner.FilterEPG([]*xmltv.Document{doc}, keep)
	return pruned.WriteFile(path)
}

// WriteCoverageCSV reports, per station id, whether the grabbed guide
// carries the channel and how many programmes it got.
func WriteCoverageCSV(w io.Writer, ids []string, doc *xmltv.Document) error {
	counts := map[string]int{}
	for _, pg := range doc.Programmes {
		counts[pg.Channel]++
	}
	present := map[string]struct{}{}
	for _, ch := range doc.Channels {
		present[ch.ID] = struct{}{}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"station_id", "in_guide", "programmes"}); err != nil {
		return err
	}
	for _, id := range ids {
		in := "0"
		if _, ok := present[id]; ok {
			in = "1"
		}
		if err := cw.Write([]string{id, in, fmt.Sprintf("%d", counts[id])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
