package magnet

import (
	"net/url"
	"strings"

	"github.com/Squwid/squidmagnet/torrentfile"
)

// Options changes what Generate puts in a link
type Options struct {
	// Name replaces the torrent's own name when set
	Name string

	// Trackers are only used when IncludeTrackers is set and the torrent has
	// no trackers of its own
	Trackers        []string
	IncludeTrackers bool
}

// Generate builds the magnet link for tf.
//
// Trackers that came with the torrent are always written. Otherwise
// opts.Trackers are written if opts.IncludeTrackers is set.
func Generate(tf torrentfile.TorrentFile, opts Options) string {
	var b strings.Builder
	b.WriteString(scheme + "?xt=" + btihPrefix)
	b.WriteString(tf.InfoHash.String())

	name := tf.Name
	if opts.Name != "" {
		name = opts.Name
	}
	if name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(name))
	}

	trackers := tf.Trackers
	if len(trackers) == 0 && opts.IncludeTrackers {
		trackers = torrentfile.AppendTrackers(nil, opts.Trackers...)
	}
	for _, tr := range trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}

	for _, p := range tf.Peers {
		b.WriteString("&x.pe=")
		b.WriteString(url.QueryEscape(p.String()))
	}

	return b.String()
}
