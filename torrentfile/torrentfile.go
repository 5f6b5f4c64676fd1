package torrentfile

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Squwid/squidmagnet/bencode"
	"github.com/Squwid/squidmagnet/peers"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingInfo      = errors.New("torrent has no info dictionary")
	ErrInvalidStructure = errors.New("invalid torrent structure")
	ErrInvalidInfoHash  = errors.New("info hash must be 40 hex characters")
)

// InfoHash is the sha1 of the bencoded info dictionary and identifies a torrent
type InfoHash [sha1.Size]byte

// String returns the 40 character lower case hex form of the hash
func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseInfoHash parses a 40 character hex string, upper or lower case
func ParseInfoHash(s string) (InfoHash, error) {
	var h InfoHash
	if len(s) != hex.EncodedLen(sha1.Size) {
		return h, errors.Wrapf(ErrInvalidInfoHash, "got %d characters", len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, errors.Wrap(ErrInvalidInfoHash, err.Error())
	}
	return h, nil
}

// TorrentFile is everything known about a torrent, whether it came from a
// .torrent file, a magnet link or a bare info hash
type TorrentFile struct {
	InfoHash InfoHash
	Name     string
	Trackers []string

	// Files and Length are set together and only for .torrent files
	Files  []File
	Length int64

	// Peers are the x.pe addresses of a magnet link
	Peers []peers.Peer

	// Meta is nil unless the torrent came from a .torrent file
	Meta *Metainfo
}

// File represents a file inside of a torrent
type File struct {
	Length int64
	Path   string
}

// HasFiles reports whether the file list and total length are known
func (tf TorrentFile) HasFiles() bool {
	return tf.Files != nil
}

// WithName returns a copy of tf using name
func (tf TorrentFile) WithName(name string) TorrentFile {
	tf.Name = name
	return tf
}

// WithTrackers returns a copy of tf with trackers added after its own
func (tf TorrentFile) WithTrackers(trackers ...string) TorrentFile {
	tf.Trackers = AppendTrackers(append([]string(nil), tf.Trackers...), trackers...)
	return tf
}

// AppendTrackers appends trackers to list, skipping empty ones and ones already
// in list
func AppendTrackers(list []string, trackers ...string) []string {
	for _, t := range trackers {
		if t == "" || contains(list, t) {
			continue
		}
		list = append(list, t)
	}
	return list
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

// Open parses a torrent file
func Open(path string) (*TorrentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the bytes of a .torrent file
func Parse(data []byte) (*TorrentFile, error) {
	v, end, err := bencode.Decode(data, 0)
	if err != nil {
		return nil, err
	}
	if end != len(data) {
		logrus.WithField("Trailing", len(data)-end).Debugf("Ignoring data after torrent dictionary")
	}
	return Extract(v)
}

// HashInfo computes the info hash of an info dictionary
func HashInfo(info bencode.Value) InfoHash {
	return sha1.Sum(bencode.Encode(info))
}

// Extract builds a TorrentFile out of a decoded .torrent file
func Extract(v bencode.Value) (*TorrentFile, error) {
	root, ok := v.(bencode.Dict)
	if !ok {
		return nil, errors.Wrap(ErrMissingInfo, "torrent is not a dictionary")
	}
	iv, ok := root.Get("info")
	if !ok {
		return nil, ErrMissingInfo
	}
	info, ok := iv.(bencode.Dict)
	if !ok {
		return nil, errors.Wrap(ErrMissingInfo, "info is not a dictionary")
	}

	infoBytes := bencode.Encode(info)
	tf := TorrentFile{
		InfoHash: sha1.Sum(infoBytes),
		Name:     readName(info),
		Trackers: readTrackers(root),
	}

	files, length, err := readFiles(info, tf.Name, tf.InfoHash)
	if err != nil {
		return nil, err
	}
	tf.Files = files
	tf.Length = length
	tf.Meta = readMetainfo(root, infoBytes)

	return &tf, nil
}

func readName(info bencode.Dict) string {
	v, ok := info.Get("name")
	if !ok {
		return ""
	}
	s, ok := v.(bencode.String)
	if !ok {
		logrus.Debugf("Ignoring name that is not a string")
		return ""
	}
	if !utf8.Valid(s) {
		logrus.Debugf("Name is not valid utf-8, replacing invalid bytes")
	}
	return strings.ToValidUTF8(string(s), string(unicode.ReplacementChar))
}

// readTrackers flattens announce and announce-list. Entries that are not
// utf-8 strings are skipped.
func readTrackers(root bencode.Dict) []string {
	var trackers []string
	add := func(v bencode.Value) {
		s, ok := v.(bencode.String)
		if !ok || !utf8.Valid(s) {
			logrus.WithField("Type", fmt.Sprintf("%T", v)).Debugf("Skipping unreadable tracker")
			return
		}
		trackers = AppendTrackers(trackers, string(s))
	}

	if v, ok := root.Get("announce"); ok {
		add(v)
	}

	if v, ok := root.Get("announce-list"); ok {
		tiers, _ := v.(bencode.List)
		for _, tier := range tiers {
			list, ok := tier.(bencode.List)
			if !ok {
				continue
			}
			for _, t := range list {
				add(t)
			}
		}
	}
	return trackers
}

func readFiles(info bencode.Dict, name string, hash InfoHash) ([]File, int64, error) {
	if v, ok := info.Get("files"); ok {
		return readMultiFile(v)
	}

	v, ok := info.Get("length")
	if !ok {
		return nil, 0, errors.Wrap(ErrInvalidStructure, "info has neither files nor length")
	}
	length, err := readLength(v)
	if err != nil {
		return nil, 0, err
	}

	path := name
	if path == "" {
		path = hash.String()
	}
	return []File{{Path: path, Length: length}}, length, nil
}

func readMultiFile(v bencode.Value) ([]File, int64, error) {
	list, ok := v.(bencode.List)
	if !ok {
		return nil, 0, errors.Wrap(ErrInvalidStructure, "files is not a list")
	}

	files := make([]File, 0, len(list))
	var total int64
	for i, item := range list {
		entry, ok := item.(bencode.Dict)
		if !ok {
			return nil, 0, errors.Wrapf(ErrInvalidStructure, "file %d is not a dictionary", i)
		}

		lv, ok := entry.Get("length")
		if !ok {
			return nil, 0, errors.Wrapf(ErrInvalidStructure, "file %d has no length", i)
		}
		length, err := readLength(lv)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "file %d", i)
		}
		if total+length < total {
			return nil, 0, errors.Wrap(ErrInvalidStructure, "total length overflows")
		}

		pv, _ := entry.Get("path")
		path, err := readPath(pv)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "file %d", i)
		}

		files = append(files, File{Path: path, Length: length})
		total += length
	}
	return files, total, nil
}

func readLength(v bencode.Value) (int64, error) {
	n, ok := v.(bencode.Integer)
	if !ok || n < 0 {
		return 0, errors.Wrap(ErrInvalidStructure, "length must be a non-negative integer")
	}
	return int64(n), nil
}

// readPath joins the path segments of a file with /
func readPath(v bencode.Value) (string, error) {
	list, ok := v.(bencode.List)
	if !ok || len(list) == 0 {
		return "", errors.Wrap(ErrInvalidStructure, "path must be a non-empty list")
	}

	parts := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(bencode.String)
		if !ok {
			return "", errors.Wrap(ErrInvalidStructure, "path segment is not a string")
		}
		// No .. allowed in file names
		if strings.TrimSpace(string(s)) == ".." {
			return "", errors.Wrapf(ErrInvalidStructure, "invalid file name %q", s)
		}
		parts[i] = strings.ToValidUTF8(string(s), string(unicode.ReplacementChar))
	}
	return strings.Join(parts, "/"), nil
}
