package torrentfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Squwid/squidmagnet/bencode"
	jackpal "github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleFileHash = "373bf645d8091a05eeaaecd87a73b71237817acd"

var zeroPieces = strings.Repeat("\x00", 20)

// marshal builds torrent fixtures with an encoder independent from ours
func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jackpal.Marshal(&buf, v))
	return buf.Bytes()
}

func singleFileTorrent() map[string]interface{} {
	return map[string]interface{}{
		"announce": "udp://tracker.example/announce",
		"info": map[string]interface{}{
			"name":         "a.txt",
			"length":       3,
			"piece length": 16384,
			"pieces":       zeroPieces,
		},
	}
}

func TestHashInfoKnownVector(t *testing.T) {
	info := bencode.Dict{
		{Key: "name", Value: bencode.String("a.txt")},
		{Key: "length", Value: bencode.Integer(3)},
		{Key: "piece length", Value: bencode.Integer(16384)},
		{Key: "pieces", Value: bencode.String(zeroPieces)},
	}
	assert.Equal(t, singleFileHash, HashInfo(info).String())

	reordered := bencode.Dict{info[3], info[1], info[2], info[0]}
	assert.Equal(t, HashInfo(info), HashInfo(reordered))
}

func TestParseSingleFile(t *testing.T) {
	tf, err := Parse(marshal(t, singleFileTorrent()))
	require.NoError(t, err)

	assert.Equal(t, singleFileHash, tf.InfoHash.String())
	assert.Equal(t, "a.txt", tf.Name)
	assert.Equal(t, []string{"udp://tracker.example/announce"}, tf.Trackers)
	assert.True(t, tf.HasFiles())
	assert.Equal(t, []File{{Path: "a.txt", Length: 3}}, tf.Files)
	assert.Equal(t, int64(3), tf.Length)

	require.NotNil(t, tf.Meta)
	assert.Equal(t, int64(16384), tf.Meta.PieceLength)
	assert.Equal(t, 1, tf.Meta.NumPieces)
	assert.False(t, tf.Meta.Private)
}

func TestParseMultiFile(t *testing.T) {
	data := marshal(t, map[string]interface{}{
		"info": map[string]interface{}{
			"name":         "pack",
			"piece length": 16384,
			"pieces":       zeroPieces,
			"files": []interface{}{
				map[string]interface{}{"length": 5, "path": []interface{}{"dir", "b.bin"}},
				map[string]interface{}{"length": 7, "path": []interface{}{"c.txt"}},
			},
		},
	})

	tf, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "1d8d6eb39661cf0fd359819a18630848b3941771", tf.InfoHash.String())
	assert.Equal(t, "pack", tf.Name)
	assert.Nil(t, tf.Trackers)
	assert.Equal(t, []File{
		{Path: "dir/b.bin", Length: 5},
		{Path: "c.txt", Length: 7},
	}, tf.Files)
	assert.Equal(t, int64(12), tf.Length)
}

func TestHashIgnoresOuterFields(t *testing.T) {
	plain := singleFileTorrent()
	withTrackers := singleFileTorrent()
	withTrackers["announce"] = "http://other.example/announce"
	withTrackers["announce-list"] = []interface{}{[]interface{}{"http://a.example/announce"}}

	a, err := Parse(marshal(t, plain))
	require.NoError(t, err)
	b, err := Parse(marshal(t, withTrackers))
	require.NoError(t, err)
	assert.Equal(t, a.InfoHash, b.InfoHash)
}

func TestTrackers(t *testing.T) {
	tests := map[string]struct {
		root     bencode.Dict
		trackers []string
	}{
		"none": {},
		"announce only": {
			root:     bencode.Dict{{Key: "announce", Value: bencode.String("http://a/announce")}},
			trackers: []string{"http://a/announce"},
		},
		"flattened and deduplicated": {
			root: bencode.Dict{
				{Key: "announce", Value: bencode.String("http://a/announce")},
				{Key: "announce-list", Value: bencode.List{
					bencode.List{bencode.String("http://a/announce"), bencode.String("udp://b:80")},
					bencode.List{bencode.String("udp://c:80"), bencode.String("udp://b:80")},
				}},
			},
			trackers: []string{"http://a/announce", "udp://b:80", "udp://c:80"},
		},
		"bad entries skipped": {
			root: bencode.Dict{
				{Key: "announce", Value: bencode.Integer(1)},
				{Key: "announce-list", Value: bencode.List{
					bencode.String("not a tier"),
					bencode.List{bencode.String("\xff\xfe"), bencode.String(""), bencode.String("udp://c:80")},
				}},
			},
			trackers: []string{"udp://c:80"},
		},
		"empty announce-list": {
			root:     bencode.Dict{{Key: "announce-list", Value: bencode.List{}}},
			trackers: nil,
		},
	}

	for name, test := range tests {
		assert.Equal(t, test.trackers, readTrackers(test.root), name)
	}
}

func TestName(t *testing.T) {
	info := bencode.Dict{{Key: "name", Value: bencode.String("caf\xe9")}}
	assert.Equal(t, "caf�", readName(info))

	assert.Equal(t, "", readName(bencode.Dict{{Key: "name", Value: bencode.Integer(1)}}))
	assert.Equal(t, "", readName(bencode.Dict{}))
}

func TestNamelessSingleFile(t *testing.T) {
	tf, err := Extract(bencode.Dict{
		{Key: "info", Value: bencode.Dict{{Key: "length", Value: bencode.Integer(0)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "", tf.Name)
	assert.Equal(t, []File{{Path: tf.InfoHash.String(), Length: 0}}, tf.Files)
}

func TestExtractErrors(t *testing.T) {
	file := func(length bencode.Value, path bencode.Value) bencode.Value {
		return bencode.Dict{{Key: "length", Value: length}, {Key: "path", Value: path}}
	}
	withInfo := func(info bencode.Dict) bencode.Value {
		return bencode.Dict{{Key: "info", Value: info}}
	}
	withFiles := func(files bencode.Value) bencode.Value {
		return withInfo(bencode.Dict{{Key: "files", Value: files}})
	}
	path := bencode.List{bencode.String("a")}

	tests := map[string]struct {
		input bencode.Value
		err   error
	}{
		"not a dictionary":         {input: bencode.List{}, err: ErrMissingInfo},
		"no info":                  {input: bencode.Dict{{Key: "announce", Value: bencode.String("x")}}, err: ErrMissingInfo},
		"info is a string":         {input: bencode.Dict{{Key: "info", Value: bencode.String("x")}}, err: ErrMissingInfo},
		"no length or files":       {input: withInfo(bencode.Dict{{Key: "name", Value: bencode.String("a")}}), err: ErrInvalidStructure},
		"string length":            {input: withInfo(bencode.Dict{{Key: "length", Value: bencode.String("3")}}), err: ErrInvalidStructure},
		"negative length":          {input: withInfo(bencode.Dict{{Key: "length", Value: bencode.Integer(-1)}}), err: ErrInvalidStructure},
		"files not a list":         {input: withFiles(bencode.Integer(1)), err: ErrInvalidStructure},
		"file not a dict":          {input: withFiles(bencode.List{bencode.Integer(1)}), err: ErrInvalidStructure},
		"file without length":      {input: withFiles(bencode.List{bencode.Dict{{Key: "path", Value: path}}}), err: ErrInvalidStructure},
		"file without path":        {input: withFiles(bencode.List{bencode.Dict{{Key: "length", Value: bencode.Integer(1)}}}), err: ErrInvalidStructure},
		"empty path":               {input: withFiles(bencode.List{file(bencode.Integer(1), bencode.List{})}), err: ErrInvalidStructure},
		"integer path segment":     {input: withFiles(bencode.List{file(bencode.Integer(1), bencode.List{bencode.Integer(1)})}), err: ErrInvalidStructure},
		"parent directory segment": {input: withFiles(bencode.List{file(bencode.Integer(1), bencode.List{bencode.String("..")})}), err: ErrInvalidStructure},
		"overflowing total": {
			input: withFiles(bencode.List{
				file(bencode.Integer(1<<62), path),
				file(bencode.Integer(1<<62), path),
				file(bencode.Integer(1<<62), path),
			}),
			err: ErrInvalidStructure,
		},
	}

	for name, test := range tests {
		tf, err := Extract(test.input)
		assert.ErrorIs(t, err, test.err, name)
		assert.Nil(t, tf, name)
	}
}

func TestParseDecodeErrors(t *testing.T) {
	_, err := Parse([]byte("d4:info"))
	assert.ErrorIs(t, err, bencode.ErrMalformedDictionary)

	_, err = Parse([]byte("x"))
	assert.ErrorIs(t, err, bencode.ErrInvalidTag)

	_, err = Parse([]byte("d4:infod6:lengthi3e4:name10:shortee"))
	assert.ErrorIs(t, err, bencode.ErrMalformedString)
}

func TestMetainfo(t *testing.T) {
	torrent := singleFileTorrent()
	torrent["comment"] = "test torrent"
	torrent["created by"] = "squidmagnet"
	torrent["creation date"] = 1700000000
	torrent["url-list"] = []interface{}{"http://seed.example/a.txt", "http://seed.example/a.txt"}
	torrent["info"].(map[string]interface{})["private"] = 1

	tf, err := Parse(marshal(t, torrent))
	require.NoError(t, err)
	require.NotNil(t, tf.Meta)

	assert.Equal(t, "test torrent", tf.Meta.Comment)
	assert.Equal(t, "squidmagnet", tf.Meta.CreatedBy)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), tf.Meta.CreationDate)
	assert.Equal(t, []string{"http://seed.example/a.txt"}, tf.Meta.URLList)
	assert.True(t, tf.Meta.Private)
}

func TestMetainfoBadTypes(t *testing.T) {
	torrent := singleFileTorrent()
	torrent["comment"] = []interface{}{"not", "a", "string"}
	torrent["creation date"] = []interface{}{"yesterday"}
	torrent["url-list"] = "http://seed.example/a.txt"

	tf, err := Parse(marshal(t, torrent))
	require.NoError(t, err)
	assert.Equal(t, "", tf.Meta.Comment)
	assert.True(t, tf.Meta.CreationDate.IsZero())
	assert.Equal(t, []string{"http://seed.example/a.txt"}, tf.Meta.URLList)
	assert.Equal(t, "a.txt", tf.Name)
}

func TestPrivate(t *testing.T) {
	tests := map[string]struct {
		raw     string
		private bool
	}{
		"absent":      {raw: "", private: false},
		"one":         {raw: "i1e", private: true},
		"zero":        {raw: "i0e", private: false},
		"string one":  {raw: "1:1", private: true},
		"string zero": {raw: "1:0", private: false},
		"empty":       {raw: "0:", private: false},
		"list":        {raw: "le", private: true},
	}

	for name, test := range tests {
		assert.Equal(t, test.private, private([]byte(test.raw)), name)
	}
}

func TestParseInfoHash(t *testing.T) {
	h, err := ParseInfoHash(strings.ToUpper(singleFileHash))
	require.NoError(t, err)
	assert.Equal(t, singleFileHash, h.String())

	_, err = ParseInfoHash("abc")
	assert.ErrorIs(t, err, ErrInvalidInfoHash)

	_, err = ParseInfoHash(strings.Repeat("z", 40))
	assert.ErrorIs(t, err, ErrInvalidInfoHash)
}

func TestWithHelpers(t *testing.T) {
	tf := TorrentFile{Name: "a", Trackers: []string{"udp://a:1"}}

	renamed := tf.WithName("b")
	assert.Equal(t, "b", renamed.Name)
	assert.Equal(t, "a", tf.Name)

	more := tf.WithTrackers("udp://a:1", "udp://b:1")
	assert.Equal(t, []string{"udp://a:1", "udp://b:1"}, more.Trackers)
	assert.Equal(t, []string{"udp://a:1"}, tf.Trackers)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.torrent")
	require.NoError(t, os.WriteFile(path, marshal(t, singleFileTorrent()), 0o644))

	tf, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, singleFileHash, tf.InfoHash.String())

	_, err = Open(filepath.Join(t.TempDir(), "missing.torrent"))
	assert.Error(t, err)
}
