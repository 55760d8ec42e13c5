package audio

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

// buildWAV 构造一个只含 fmt 和 data 的最小 WAV。
func buildWAV(format uint16, channels uint16, rate uint32, bits uint16, payload []byte, extra ...[]byte) []byte {
	var b []byte
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, 0) // 长度字段解析时不使用
	b = append(b, "WAVE"...)

	for _, chunk := range extra {
		b = append(b, chunk...)
	}

	b = append(b, "fmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, format)
	b = binary.LittleEndian.AppendUint16(b, channels)
	b = binary.LittleEndian.AppendUint32(b, rate)
	blockAlign := channels * bits / 8
	b = binary.LittleEndian.AppendUint32(b, rate*uint32(blockAlign))
	b = binary.LittleEndian.AppendUint16(b, blockAlign)
	b = binary.LittleEndian.AppendUint16(b, bits)

	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(payload)))
	b = append(b, payload...)
	return b
}

func TestDecodeWAV_PCM16Mono(t *testing.T) {
	payload := Int16ToBytes([]int16{0, math.MaxInt16, -math.MaxInt16})
	samples, rate, err := DecodeWAV(buildWAV(wavFormatPCM, 1, 24000, 16, payload))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 24000 {
		t.Errorf("rate: got %d, want 24000", rate)
	}
	want := []float32{0, 1, -1}
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(samples))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("index %d: got %f, want %f", i, samples[i], want[i])
		}
	}
}

func TestDecodeWAV_PCM16StereoDownmix(t *testing.T) {
	payload := Int16ToBytes([]int16{1000, 3000, -200, 200})
	samples, _, err := DecodeWAV(buildWAV(wavFormatPCM, 2, 22050, 16, payload))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(samples))
	}
	if want := float32(2000) / math.MaxInt16; samples[0] != want {
		t.Errorf("frame 0: got %f, want %f", samples[0], want)
	}
	if samples[1] != 0 {
		t.Errorf("frame 1: got %f, want 0", samples[1])
	}
}

func TestDecodeWAV_Float32(t *testing.T) {
	var payload []byte
	for _, v := range []float32{0.25, -0.5} {
		payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(v))
	}
	samples, rate, err := DecodeWAV(buildWAV(wavFormatFloat, 1, 24000, 32, payload))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 24000 || len(samples) != 2 || samples[0] != 0.25 || samples[1] != -0.5 {
		t.Fatalf("unexpected result: rate=%d samples=%v", rate, samples)
	}
}

func TestDecodeWAV_SkipsUnknownOddChunk(t *testing.T) {
	// LIST chunk 长度为奇数，需要跳过一个填充字节
	list := []byte("LIST")
	list = binary.LittleEndian.AppendUint32(list, 3)
	list = append(list, 'a', 'b', 'c', 0)

	payload := Int16ToBytes([]int16{math.MaxInt16})
	samples, _, err := DecodeWAV(buildWAV(wavFormatPCM, 1, 24000, 16, payload, list))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(samples) != 1 || samples[0] != 1 {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	noData := buildWAV(wavFormatPCM, 1, 24000, 16, nil)
	noData = noData[:len(noData)-8] // 去掉 data chunk 头

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"too short", []byte("RIFF"), "过短"},
		{"bad magic", []byte("RIFX\x00\x00\x00\x00WAVEfmt "), "RIFF/WAVE"},
		{"missing data", noData, "data chunk"},
		{"zero channels", buildWAV(wavFormatPCM, 0, 24000, 16, nil), "声道数"},
		{"unsupported", buildWAV(wavFormatPCM, 1, 24000, 8, []byte{1, 2}), "不支持"},
		{"pcm16 mono short data", buildWAV(wavFormatPCM, 1, 24000, 16, []byte{1}), "data chunk 过小"},
		{"pcm16 stereo short data", buildWAV(wavFormatPCM, 2, 24000, 16, []byte{1, 2}), "data chunk 过小"},
		{"float32 short data", buildWAV(wavFormatFloat, 1, 24000, 32, []byte{1, 2}), "data chunk 过小"},
		{"empty data", buildWAV(wavFormatPCM, 1, 24000, 16, nil), "data chunk 过小"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeWAV(tc.data)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}
