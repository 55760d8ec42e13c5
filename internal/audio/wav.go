package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WAV 格式码。
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// WAVInfo 是 fmt chunk 中与解码相关的字段。
type WAVInfo struct {
	Format        uint16
	Channels      int
	SampleRate    int
	BitsPerSample uint16
}

var errShortWAV = errors.New("WAV 数据过短，缺少 RIFF 头")

// ParseWAV 遍历 RIFF chunk，返回格式信息和 data chunk 内容。
// 奇数长度的 chunk 按规范补齐一个字节。
func ParseWAV(data []byte) (WAVInfo, []byte, error) {
	var info WAVInfo
	if len(data) < 12 {
		return info, nil, errShortWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return info, nil, errors.New("无效的 RIFF/WAVE 头")
	}

	var (
		haveFmt  bool
		payload  []byte
		haveData bool
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		start := offset + 8
		end := start + size
		if end > len(data) || end < start {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if size < 16 || end < start+16 {
				return info, nil, errors.New("WAV fmt chunk 过小")
			}
			chunk := data[start:end]
			info.Format = binary.LittleEndian.Uint16(chunk[0:2])
			info.Channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			info.BitsPerSample = binary.LittleEndian.Uint16(chunk[14:16])
			haveFmt = true
		case "data":
			payload = data[start:end]
			haveData = true
		}

		offset = end + size%2
	}

	if !haveFmt {
		return info, nil, errors.New("缺少 WAV fmt chunk")
	}
	if !haveData {
		return info, nil, errors.New("缺少 WAV data chunk")
	}
	if info.Channels == 0 {
		return info, nil, errors.New("WAV 声道数为 0")
	}
	return info, payload, nil
}

// DecodeWAV 将 WAV 文件解码为单声道 float32 样本和采样率。
// 支持 16-bit PCM 与 32-bit float（含 WAVE_FORMAT_EXTENSIBLE），多声道取平均。
func DecodeWAV(data []byte) ([]float32, int, error) {
	info, payload, err := ParseWAV(data)
	if err != nil {
		return nil, 0, err
	}

	var samples []float32
	switch {
	case (info.Format == wavFormatPCM || info.Format == wavFormatExtensible) && info.BitsPerSample == 16:
		samples, err = downmixPCM16(payload, info.Channels)
	case (info.Format == wavFormatFloat || info.Format == wavFormatExtensible) && info.BitsPerSample == 32:
		samples, err = downmixFloat32(payload, info.Channels)
	default:
		return nil, 0, fmt.Errorf("不支持的 WAV 格式: format=%d bits=%d", info.Format, info.BitsPerSample)
	}
	if err != nil {
		return nil, 0, err
	}
	return samples, info.SampleRate, nil
}

// checkFrame 要求 data chunk 至少容纳一帧。
func checkFrame(payload []byte, frame int) error {
	if len(payload) < frame {
		return fmt.Errorf("WAV data chunk 过小: %d 字节，一帧需要 %d 字节", len(payload), frame)
	}
	return nil
}

func downmixPCM16(payload []byte, channels int) ([]float32, error) {
	frame := channels * 2
	if err := checkFrame(payload, frame); err != nil {
		return nil, err
	}
	if channels == 1 {
		return BytesToFloat32(payload), nil
	}
	out := make([]float32, 0, len(payload)/frame)
	for off := 0; off+frame <= len(payload); off += frame {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(int16(binary.LittleEndian.Uint16(payload[off+ch*2:])))
		}
		out = append(out, float32(sum/int32(channels))/math.MaxInt16)
	}
	return out, nil
}

func downmixFloat32(payload []byte, channels int) ([]float32, error) {
	frame := channels * 4
	if err := checkFrame(payload, frame); err != nil {
		return nil, err
	}
	out := make([]float32, 0, len(payload)/frame)
	for off := 0; off+frame <= len(payload); off += frame {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += math.Float32frombits(binary.LittleEndian.Uint32(payload[off+ch*4:]))
		}
		out = append(out, sum/float32(channels))
	}
	return out, nil
}
