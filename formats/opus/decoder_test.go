// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/pion/opus"
)

func TestPacketSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		packet []byte
		want   int
	}{
		{"silk 10ms", []byte{0 << 3}, 480},
		{"silk 20ms", []byte{1 << 3}, 960},
		{"silk 60ms", []byte{11 << 3}, 2880},
		{"hybrid 20ms", []byte{13 << 3}, 960},
		{"celt 2.5ms", []byte{16 << 3}, 120},
		{"celt 20ms", []byte{31 << 3}, 960},
		{"two frames", []byte{1<<3 | 1}, 1920},
		{"two vbr frames", []byte{1<<3 | 2}, 1920},
		{"code 3 with 3 frames", []byte{1<<3 | 3, 3}, 2880},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := packetSamples(tt.packet)
			if err != nil || got != tt.want {
				t.Errorf("packetSamples() = %d, %v; want %d", got, err, tt.want)
			}
		})
	}

	if _, err := packetSamples(nil); !errors.Is(err, ErrEmptyPacket) {
		t.Errorf("empty packet error = %v", err)
	}
}

// rampDecoder writes the sample index as S16LE so output order is checkable.
type rampDecoder struct {
	calls int
	err   error
}

func (d *rampDecoder) Decode(_ []byte, out []byte) (opus.Bandwidth, bool, error) {
	if d.err != nil {
		return 0, false, d.err
	}
	for i := 0; i < len(out)/2; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(d.calls*1000+i)))
	}
	d.calls++
	return 0, false, nil
}

func opusHead(preSkip uint16) []byte {
	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1
	head[9] = 1
	binary.LittleEndian.PutUint16(head[10:12], preSkip)
	binary.LittleEndian.PutUint32(head[12:16], 48000)
	return head
}

func TestSource_DecodesPackets(t *testing.T) {
	t.Parallel()

	// two 10ms SILK packets, 480 samples each, 100 skipped up front
	stream := oggStream(9, opusHead(100), []byte("OpusTags"), []byte{0}, []byte{0})
	dec := &rampDecoder{}
	src, err := newSource(bytes.NewReader(stream), dec)
	if err != nil {
		t.Fatal(err)
	}
	if src.SampleRate() != SampleRate || src.Channels() != 1 {
		t.Fatalf("metadata = %d Hz %d ch", src.SampleRate(), src.Channels())
	}

	var got []float32
	buf := make([]float32, 333)
	for {
		n, err := src.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	if len(got) != 960-100 {
		t.Fatalf("got %d samples, want %d", len(got), 960-100)
	}
	if got[0] != float32(100)/32768 {
		t.Errorf("first sample = %v, want pre-skip applied", got[0])
	}
	if got[380] != float32(1000)/32768 {
		t.Errorf("sample 380 = %v, want start of second packet", got[380])
	}
}

func TestSource_DecoderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("unsupported mode")
	stream := oggStream(1, opusHead(0), []byte("OpusTags"), []byte{16 << 3})
	src, err := newSource(bytes.NewReader(stream), &rampDecoder{err: boom})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.ReadSamples(make([]float32, 10)); !errors.Is(err, boom) {
		t.Errorf("error = %v, want decoder error", err)
	}
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data []byte
		want error
	}{
		"empty":       {nil, ErrMissingHeader},
		"vorbis":      {oggStream(1, []byte("\x01vorbis0000000000000000000000")), ErrNotOpus},
		"no tags":     {oggStream(1, opusHead(0)), ErrNotOpus},
		"not ogg":     {[]byte("RIFF....WAVEfmt ............................"), ErrNotOpus},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}
