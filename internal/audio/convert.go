package audio

import (
	"math"
)

// Int16ToFloat32 将 PCM int16 样本转换为 [-1.0, 1.0] 范围的 float32。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// ScaleToInt16 将 float32 样本乘以 32767 后向零截断为 int16。
// 不做钳位：超出 [-1.0, 1.0] 的样本按补码回绕，与 numpy astype(int16) 一致。
func ScaleToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		// 先转 int64 再截到 int16，避免 float→int16 直接转换的实现相关行为
		out[i] = int16(int64(s * math.MaxInt16))
	}
	return out
}

// Float32ToInt16 将 [-1.0, 1.0] 范围的 float32 样本转换为 PCM int16，超出范围的先钳位。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// BytesToInt16 将小端字节切片转换为 int16 样本。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// BytesToFloat32 便捷函数：将原始 PCM 字节直接转换为 float32。
func BytesToFloat32(b []byte) []float32 {
	return Int16ToFloat32(BytesToInt16(b))
}

// PCM16 将合成结果转换为可直接写出的 16-bit LE PCM 字节。
// clamp 为 false 时使用 ScaleToInt16（默认行为）。
func PCM16(samples []float32, clamp bool) []byte {
	if clamp {
		return Int16ToBytes(Float32ToInt16(samples))
	}
	return Int16ToBytes(ScaleToInt16(samples))
}
