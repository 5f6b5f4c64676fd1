package magnet

import (
	"net/url"
	"strings"

	"github.com/Squwid/squidmagnet/peers"
	"github.com/Squwid/squidmagnet/torrentfile"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidLink     = errors.New("invalid magnet link")
	ErrMissingInfoHash = errors.New("magnet link has no info hash")
)

const (
	scheme     = "magnet:"
	btihPrefix = "urn:btih:"
)

// Magnet is the content of a magnet link
type Magnet struct {
	InfoHash torrentfile.InfoHash
	Name     string
	Trackers []string
	Peers    []peers.Peer
}

// Parse parses a magnet url and returns a magnet object. Only the info hash is
// required, a name, tracker or peer that does not decode is kept raw or skipped.
func Parse(s string) (*Magnet, error) {
	if len(s) < len(scheme) || !strings.EqualFold(s[:len(scheme)], scheme) {
		return nil, errors.Wrap(ErrInvalidLink, "expected scheme 'magnet'")
	}
	query := s[len(scheme):]
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query = query[:i]
	}
	query = strings.TrimPrefix(query, "?")

	params := parseQuery(query)

	xts, ok := params["xt"]
	if !ok {
		return nil, ErrMissingInfoHash
	}

	var m Magnet
	if err := m.setInfoHash(xts); err != nil {
		return nil, err
	}

	if names := params["dn"]; len(names) == 1 {
		m.Name = names[0]
	}
	m.Trackers = torrentfile.AppendTrackers(nil, params["tr"]...)

	for _, addr := range params["x.pe"] {
		p, err := peers.ParseAddr(addr)
		if err != nil {
			logrus.WithError(err).WithField("Peer", addr).Debugf("Skipping peer address")
			continue
		}
		m.Peers = append(m.Peers, p)
	}

	return &m, nil
}

// setInfoHash uses the first urn:btih: exact topic, other hash types are ignored
func (m *Magnet) setInfoHash(xts []string) error {
	for _, xt := range xts {
		if len(xt) < len(btihPrefix) || !strings.EqualFold(xt[:len(btihPrefix)], btihPrefix) {
			continue
		}
		h, err := torrentfile.ParseInfoHash(xt[len(btihPrefix):])
		if err != nil {
			return errors.Wrapf(ErrInvalidLink, "bad xt %q", xt)
		}
		m.InfoHash = h
		return nil
	}
	return errors.Wrapf(ErrInvalidLink, "no %s exact topic in %q", btihPrefix, xts)
}

// parseQuery splits key=value pairs itself since url.ParseQuery gives up on the
// whole query when a single value has a bad escape.
func parseQuery(query string) map[string][]string {
	params := make(map[string][]string)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value := pair, ""
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key, value = pair[:i], pair[i+1:]
		}
		key = unescape(key)
		params[key] = append(params[key], unescape(value))
	}
	return params
}

func unescape(s string) string {
	u, err := url.QueryUnescape(s)
	if err != nil {
		logrus.WithError(err).Debugf("Keeping undecodable magnet value as is")
		return s
	}
	return u
}

// TorrentFile converts the magnet into a torrent with no file list
func (m Magnet) TorrentFile() torrentfile.TorrentFile {
	return torrentfile.TorrentFile{
		InfoHash: m.InfoHash,
		Name:     m.Name,
		Trackers: m.Trackers,
		Peers:    m.Peers,
	}
}

func (m Magnet) String() string {
	return Generate(m.TorrentFile(), Options{})
}
