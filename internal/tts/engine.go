package tts

import (
	"context"
	"path/filepath"
)

// Kokoro v1.0 模型目录中的固定文件名。
const (
	ModelFile  = "kokoro-v1.0.onnx"
	VoicesFile = "voices-v1.0.bin"
)

// Engine 定义语音合成后端接口。
type Engine interface {
	// Synthesize 将文本转换为音频。
	// 返回 float32 音频样本、采样率（Hz）和错误。
	Synthesize(ctx context.Context, text, voice string, speed float32) ([]float32, int, error)

	// Close 释放模型资源。
	Close()
}

// Opener 用模型文件和音色文件创建引擎，文件缺失或损坏时返回错误。
type Opener func(modelPath, voicesPath string) (Engine, error)

// ModelPaths 返回模型目录下的模型文件和音色文件路径。
func ModelPaths(modelDir string) (modelPath, voicesPath string) {
	return filepath.Join(modelDir, ModelFile), filepath.Join(modelDir, VoicesFile)
}
