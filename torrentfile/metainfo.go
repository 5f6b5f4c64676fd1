package torrentfile

import (
	"crypto/sha1"
	"time"

	"github.com/Squwid/squidmagnet/bencode"
	"github.com/sirupsen/logrus"
	zbencode "github.com/zeebo/bencode"
)

// Metainfo holds the parts of a .torrent file that do not affect how it is
// identified or named. Every field is optional.
type Metainfo struct {
	PieceLength  int64
	NumPieces    int
	Private      bool
	Comment      string
	CreatedBy    string
	CreationDate time.Time
	URLList      []string
}

type bencodeInfo struct {
	PieceLength zbencode.RawMessage `bencode:"piece length"`
	Pieces      zbencode.RawMessage `bencode:"pieces"`
	Private     zbencode.RawMessage `bencode:"private"`
}

type bencodeTorrent struct {
	Comment      zbencode.RawMessage `bencode:"comment"`
	CreatedBy    zbencode.RawMessage `bencode:"created by"`
	CreationDate zbencode.RawMessage `bencode:"creation date"`
	URLList      zbencode.RawMessage `bencode:"url-list"`
}

// readMetainfo decodes the optional fields field by field so that one badly
// typed entry does not hide the others.
func readMetainfo(root bencode.Dict, infoBytes []byte) *Metainfo {
	var meta Metainfo
	l := logrus.WithField("Section", "metainfo")

	var bci bencodeInfo
	if err := zbencode.DecodeBytes(infoBytes, &bci); err != nil {
		l.WithError(err).Debugf("Could not decode info fields")
	}
	decodeOptional(bci.PieceLength, &meta.PieceLength, l)

	var pieces []byte
	if decodeOptional(bci.Pieces, &pieces, l) && len(pieces)%sha1.Size == 0 {
		meta.NumPieces = len(pieces) / sha1.Size
	}
	meta.Private = private(bci.Private)

	var bto bencodeTorrent
	if err := zbencode.DecodeBytes(bencode.Encode(root), &bto); err != nil {
		l.WithError(err).Debugf("Could not decode torrent fields")
	}
	decodeOptional(bto.Comment, &meta.Comment, l)
	decodeOptional(bto.CreatedBy, &meta.CreatedBy, l)

	var created int64
	if decodeOptional(bto.CreationDate, &created, l) && created > 0 {
		meta.CreationDate = time.Unix(created, 0).UTC()
	}
	meta.URLList = urlList(bto.URLList)

	return &meta
}

func decodeOptional(raw zbencode.RawMessage, v interface{}, l *logrus.Entry) bool {
	if len(raw) == 0 {
		return false
	}
	if err := zbencode.DecodeBytes(raw, v); err != nil {
		l.WithError(err).Debugf("Ignoring badly typed field")
		return false
	}
	return true
}

// private is true for a non zero integer or a string other than "" and "0"
func private(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	var i int64
	if err := zbencode.DecodeBytes(b, &i); err == nil {
		return i != 0
	}

	var s string
	if err := zbencode.DecodeBytes(b, &s); err != nil {
		return true
	}
	return !(s == "" || s == "0")
}

// url-list is either a single url or a list of them
func urlList(b []byte) []string {
	if len(b) == 0 {
		return nil
	}

	var list []string
	if err := zbencode.DecodeBytes(b, &list); err == nil {
		return AppendTrackers(nil, list...)
	}

	var s string
	if err := zbencode.DecodeBytes(b, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}
