package storage

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

const (
	archiveSampleRate = 48000
	frameSamples      = 960 // 20ms frame at 48kHz
	opusPayloadType   = 111
	archiveSSRC       = 1
)

// OggOpusEncoder packs Opus RTP packets into an Ogg container. It never
// touches the Opus payloads themselves, it only writes the pages around them.
type OggOpusEncoder struct {
}

// NewOggOpusEncoder creates a new Ogg Opus encoder
func NewOggOpusEncoder() *OggOpusEncoder {
	return &OggOpusEncoder{}
}

// EncodeMono writes the packets into a mono Ogg Opus stream in timestamp order.
func (e *OggOpusEncoder) EncodeMono(rtpPackets []*rtp.Packet) ([]byte, error) {
	if len(rtpPackets) == 0 {
		return nil, fmt.Errorf("no RTP packets to encode")
	}

	var buffer bytes.Buffer

	oggWriter, err := oggwriter.NewWith(&buffer, archiveSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create OGG writer: %v", err)
	}
	defer oggWriter.Close()

	sort.Slice(rtpPackets, func(i, j int) bool {
		return rtpPackets[i].Timestamp < rtpPackets[j].Timestamp
	})

	for _, rtpPacket := range rtpPackets {
		if rtpPacket == nil || len(rtpPacket.Payload) == 0 {
			continue
		}

		if err := oggWriter.WriteRTP(rtpPacket); err != nil {
			return nil, fmt.Errorf("failed to write RTP packet to OGG: %v", err)
		}
	}

	return buffer.Bytes(), nil
}

// EncodeMonoPadded lays the packets onto a fixed-duration timeline and fills
// the gaps between utterances with DTX silence frames, so players see one
// continuous stream with the live pacing of the call.
func (e *OggOpusEncoder) EncodeMonoPadded(rtpPackets []*rtp.Packet, totalDuration time.Duration) ([]byte, error) {
	if len(rtpPackets) == 0 {
		return nil, fmt.Errorf("no RTP packets to encode")
	}

	var buffer bytes.Buffer

	oggWriter, err := oggwriter.NewWith(&buffer, archiveSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create OGG writer: %v", err)
	}
	defer oggWriter.Close()

	// Sort packets by timestamp to ensure correct order
	sort.Slice(rtpPackets, func(i, j int) bool {
		return rtpPackets[i].Timestamp < rtpPackets[j].Timestamp
	})

	totalSamples := uint32(totalDuration.Milliseconds() * 48)

	currentTimestamp := uint32(0)
	packetIndex := 0
	for currentTimestamp < totalSamples {
		if packetIndex < len(rtpPackets) && rtpPackets[packetIndex].Timestamp <= currentTimestamp {
			if err := oggWriter.WriteRTP(rtpPackets[packetIndex]); err != nil {
				return nil, fmt.Errorf("failed to write RTP packet: %v", err)
			}
			packetIndex++
		} else {
			silencePacket := &rtp.Packet{
				Header: rtp.Header{
					Version:     2,
					PayloadType: opusPayloadType,
					SSRC:        archiveSSRC,
					Timestamp:   currentTimestamp,
				},
				Payload: silenceOpusFrame(),
			}
			if err := oggWriter.WriteRTP(silencePacket); err != nil {
				return nil, fmt.Errorf("failed to write silence packet: %v", err)
			}
		}

		currentTimestamp += frameSamples
	}

	return buffer.Bytes(), nil
}

// silenceOpusFrame returns a single-byte Opus DTX frame.
// TOC byte 0xF8 (config 31, mono, frame count 1) with no data bytes.
func silenceOpusFrame() []byte {
	return []byte{0xF8}
}
