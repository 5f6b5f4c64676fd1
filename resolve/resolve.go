// Package resolve turns whatever a user hands over (typed text or the bytes of
// a .torrent file) into a torrentfile.TorrentFile.
package resolve

import (
	"os"
	"strings"

	"github.com/Squwid/squidmagnet/magnet"
	"github.com/Squwid/squidmagnet/torrentfile"
	"github.com/pkg/errors"
)

var ErrUnrecognizedInput = errors.New("input is neither a magnet link nor an info hash")

// FromText resolves a magnet link or a 40 character hex info hash
func FromText(text string) (*torrentfile.TorrentFile, error) {
	text = strings.TrimSpace(text)

	if IsMagnet(text) {
		m, err := magnet.Parse(text)
		if err != nil {
			return nil, err
		}
		tf := m.TorrentFile()
		return &tf, nil
	}

	h, err := torrentfile.ParseInfoHash(text)
	if err != nil {
		return nil, errors.Wrapf(ErrUnrecognizedInput, "%.60q", text)
	}
	return &torrentfile.TorrentFile{InfoHash: h}, nil
}

// FromBytes resolves the contents of a .torrent file
func FromBytes(data []byte) (*torrentfile.TorrentFile, error) {
	return torrentfile.Parse(data)
}

// FromFile reads a .torrent file from disk and resolves it
func FromFile(path string) (*torrentfile.TorrentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading torrent file")
	}
	return FromBytes(data)
}

// IsMagnet checks whether s looks like a magnet link rather than an info hash
// or a file path
func IsMagnet(s string) bool {
	return len(s) >= len("magnet:") && strings.EqualFold(s[:len("magnet:")], "magnet:")
}
