package backend

import (
	"bufio"
	"io"
)

type oggPage struct {
	isHeader bool
	packets  [][]byte
}

// readOggPage parses one ogg page from the stream and splits it into opus
// packets. Pages carrying OpusHead/OpusTags metadata are flagged so the
// caller can skip them.
func readOggPage(reader *bufio.Reader) (*oggPage, error) {
	if err := syncToOggPage(reader); err != nil {
		return nil, err
	}

	headerRest := make([]byte, 23)
	if _, err := io.ReadFull(reader, headerRest); err != nil {
		return nil, err
	}

	headerType := headerRest[1]
	pageSegments := headerRest[22]

	segmentTable := make([]byte, pageSegments)
	if _, err := io.ReadFull(reader, segmentTable); err != nil {
		return nil, err
	}

	pageSize := 0
	for _, seg := range segmentTable {
		pageSize += int(seg)
	}

	pageData := make([]byte, pageSize)
	if _, err := io.ReadFull(reader, pageData); err != nil {
		return nil, err
	}

	isHeader := headerType&0x02 != 0
	if len(pageData) >= 8 {
		magic := string(pageData[:8])
		if magic == "OpusHead" || magic == "OpusTags" {
			isHeader = true
		}
	}

	return &oggPage{
		isHeader: isHeader,
		packets:  extractPackets(segmentTable, pageData),
	}, nil
}

// syncToOggPage discards bytes until the next "OggS" capture pattern.
func syncToOggPage(reader *bufio.Reader) error {
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return err
		}
		if b != 'O' {
			continue
		}

		peek, err := reader.Peek(3)
		if err != nil {
			return err
		}
		if string(peek) == "ggS" {
			_, _ = reader.Discard(3)
			return nil
		}
	}
}

// extractPackets reassembles opus packets from the page's segment lacing: a
// segment shorter than 255 bytes terminates the current packet.
func extractPackets(segmentTable []byte, pageData []byte) [][]byte {
	var packets [][]byte
	var current []byte
	offset := 0

	for _, segSize := range segmentTable {
		size := int(segSize)
		if offset+size > len(pageData) {
			break
		}

		current = append(current, pageData[offset:offset+size]...)
		offset += size

		if segSize < 255 && len(current) > 0 {
			packet := make([]byte, len(current))
			copy(packet, current)
			packets = append(packets, packet)
			current = current[:0]
		}
	}

	if len(current) > 0 {
		packet := make([]byte, len(current))
		copy(packet, current)
		packets = append(packets, packet)
	}

	return packets
}
