package backend

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPage assembles a minimal ogg page: capture pattern, 23 header bytes
// (type flag at offset 1, segment count at offset 22), lacing table, data.
func buildPage(headerType byte, segments []byte, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("OggS")
	header := make([]byte, 23)
	header[1] = headerType
	header[22] = byte(len(segments))
	buf.Write(header)
	buf.Write(segments)
	buf.Write(data)
	return buf.Bytes()
}

func TestReadOggPageSplitsPackets(t *testing.T) {
	// two packets: one spanning two lacing values (255+3), one of 4 bytes
	data := append(bytes.Repeat([]byte{0xAA}, 258), []byte{1, 2, 3, 4}...)
	raw := buildPage(0, []byte{255, 3, 4}, data)

	page, err := readOggPage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.False(t, page.isHeader)
	require.Len(t, page.packets, 2)
	assert.Len(t, page.packets[0], 258)
	assert.Equal(t, []byte{1, 2, 3, 4}, page.packets[1])
}

func TestReadOggPageFlagsOpusHead(t *testing.T) {
	data := []byte("OpusHead....")
	raw := buildPage(0, []byte{byte(len(data))}, data)

	page, err := readOggPage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.True(t, page.isHeader)
}

func TestReadOggPageSyncsPastGarbage(t *testing.T) {
	data := []byte{9, 9}
	raw := append([]byte("garbage Ogg not-quite "), buildPage(0, []byte{2}, data)...)

	page, err := readOggPage(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	require.Len(t, page.packets, 1)
	assert.Equal(t, data, page.packets[0])
}

func TestReadOggPageEOF(t *testing.T) {
	_, err := readOggPage(bufio.NewReader(bytes.NewReader(nil)))
	assert.Error(t, err)
}

func TestExtractPacketsContinuation(t *testing.T) {
	// a single 255-byte lacing value leaves the packet open; it is flushed
	// at the end of the page
	data := bytes.Repeat([]byte{0x01}, 255)
	packets := extractPackets([]byte{255}, data)
	require.Len(t, packets, 1)
	assert.Len(t, packets[0], 255)
}
