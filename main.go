package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Squwid/squidmagnet/bencode"
	"github.com/Squwid/squidmagnet/magnet"
	"github.com/Squwid/squidmagnet/resolve"
	"github.com/Squwid/squidmagnet/torrentfile"
	"github.com/Squwid/squidmagnet/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const usage = `usage:
  squidmagnet info <file.torrent | info hash | magnet link>
  squidmagnet magnet [-name N] [-trackers url,url] [-include-trackers] <file.torrent | info hash | magnet link>
  squidmagnet decode <file.torrent>`

var commands = map[string]func(args []string, w io.Writer) error{
	"info":   runInfo,
	"magnet": runMagnet,
	"decode": runDecode,
}

func main() {
	logger := logrus.New()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.WithError(err).Errorf("Error running command")
		os.Exit(1)
	}
}

func run(args []string, w io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Errorf("unknown command %q\n%s", args[0], usage)
	}
	return cmd(args[1:], w)
}

// load reads input as a path to a .torrent file if one exists there, and as a
// magnet link or info hash otherwise
func load(input string) (*torrentfile.TorrentFile, error) {
	if !resolve.IsMagnet(input) {
		if fi, err := os.Stat(input); err == nil && !fi.IsDir() {
			logrus.WithField("Path", input).Debugf("Reading torrent file")
			return resolve.FromFile(input)
		}
	}
	return resolve.FromText(input)
}

func newFlags(name string, verbose *bool) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(verbose, "v", false, "log debug output")
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, verbose *bool) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", errors.Wrap(err, usage)
	}
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if fs.NArg() != 1 {
		return "", errors.New(usage)
	}
	return fs.Arg(0), nil
}

func runInfo(args []string, w io.Writer) error {
	var verbose bool
	fs := newFlags("info", &verbose)
	input, err := parseFlags(fs, args, &verbose)
	if err != nil {
		return err
	}

	tf, err := load(input)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Info Hash: %s\n", tf.InfoHash)
	if tf.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", tf.Name)
	}
	if tf.HasFiles() {
		fmt.Fprintf(w, "Length: %d (%s)\n", tf.Length, util.FormatBytes(tf.Length))
		fmt.Fprintln(w, "Files:")
		for _, f := range tf.Files {
			fmt.Fprintf(w, "  %s (%s)\n", f.Path, util.FormatBytes(f.Length))
		}
	}
	if len(tf.Trackers) > 0 {
		fmt.Fprintln(w, "Trackers:")
		for _, tr := range tf.Trackers {
			fmt.Fprintf(w, "  %s\n", tr)
		}
	}
	for _, p := range tf.Peers {
		fmt.Fprintf(w, "Peer: %s\n", p)
	}

	if m := tf.Meta; m != nil {
		if m.PieceLength > 0 {
			fmt.Fprintf(w, "Piece Length: %d\n", m.PieceLength)
			fmt.Fprintf(w, "Pieces: %d\n", m.NumPieces)
		}
		if m.Private {
			fmt.Fprintln(w, "Private: yes")
		}
		if m.Comment != "" {
			fmt.Fprintf(w, "Comment: %s\n", m.Comment)
		}
		if m.CreatedBy != "" {
			fmt.Fprintf(w, "Created By: %s\n", m.CreatedBy)
		}
		if !m.CreationDate.IsZero() {
			fmt.Fprintf(w, "Created: %s\n", m.CreationDate.Format("2006-01-02 15:04:05 MST"))
		}
		for _, u := range m.URLList {
			fmt.Fprintf(w, "Web Seed: %s\n", u)
		}
	}
	return nil
}

func runMagnet(args []string, w io.Writer) error {
	var (
		verbose  bool
		opts     magnet.Options
		trackers string
	)
	fs := newFlags("magnet", &verbose)
	fs.StringVar(&opts.Name, "name", "", "display name to use instead of the torrent's")
	fs.StringVar(&trackers, "trackers", "", "comma separated trackers for torrents that have none")
	fs.BoolVar(&opts.IncludeTrackers, "include-trackers", false, "write -trackers into the link")
	input, err := parseFlags(fs, args, &verbose)
	if err != nil {
		return err
	}
	opts.Trackers = splitList(trackers)

	tf, err := load(input)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, magnet.Generate(*tf, opts))
	return nil
}

func runDecode(args []string, w io.Writer) error {
	var verbose bool
	fs := newFlags("decode", &verbose)
	input, err := parseFlags(fs, args, &verbose)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	v, _, err := bencode.Decode(data, 0)
	if err != nil {
		return err
	}

	out, err := json.Marshal(bencode.Plain(v))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
