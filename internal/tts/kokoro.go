package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iabetor/kokoro-tts/internal/logger"
	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// KokoroOptions 是 sherpa-onnx Kokoro 模型的附加资源。
// 相对路径按模型文件所在目录解析。
type KokoroOptions struct {
	Tokens     string // tokens.txt
	DataDir    string // espeak-ng-data 目录
	Lexicon    string // 可选，逗号分隔的多个词典
	DictDir    string // 可选，jieba 词典目录（中文）
	NumThreads int
	Provider   string
	Debug      bool
}

// KokoroEngine 封装 sherpa-onnx OfflineTts，在进程内运行 Kokoro 模型。
type KokoroEngine struct {
	impl *sherpa.OfflineTts
	mu   sync.Mutex
}

// NewKokoroOpener 返回使用给定附加资源创建 KokoroEngine 的 Opener。
func NewKokoroOpener(opts KokoroOptions) Opener {
	return func(modelPath, voicesPath string) (Engine, error) {
		return NewKokoroEngine(modelPath, voicesPath, opts)
	}
}

// NewKokoroEngine 加载 Kokoro 模型。
// sherpa-onnx 需要它自己导出的模型目录：除模型和音色文件外还要有 tokens 和 espeak-ng-data，
// 音色文件也必须是 sherpa 的格式，kokoro-onnx 发布的 voices-v1.0.bin 不能直接使用。
// 资源不存在时直接返回错误，不交给 sherpa 处理。
func NewKokoroEngine(modelPath, voicesPath string, opts KokoroOptions) (*KokoroEngine, error) {
	baseDir := filepath.Dir(modelPath)
	tokens := resolvePath(baseDir, opts.Tokens)
	dataDir := resolvePath(baseDir, opts.DataDir)

	required := []string{modelPath, voicesPath, tokens}
	if dataDir != "" {
		required = append(required, dataDir)
	}
	for _, p := range required {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("[tts] kokoro: 模型资源不可用（engine: kokoro 需要 sherpa-onnx 导出的模型目录，"+
				"只有 onnx 模型和音色文件时请使用 engine: koko）: %w", err)
		}
	}

	var lexicons []string
	if opts.Lexicon != "" {
		for _, l := range strings.Split(opts.Lexicon, ",") {
			lexicons = append(lexicons, resolvePath(baseDir, strings.TrimSpace(l)))
		}
	}

	debug := 0
	if opts.Debug {
		debug = 1
	}

	config := &sherpa.OfflineTtsConfig{}
	config.Model.Kokoro = sherpa.OfflineTtsKokoroModelConfig{
		Model:       modelPath,
		Voices:      voicesPath,
		Tokens:      tokens,
		DataDir:     dataDir,
		Lexicon:     strings.Join(lexicons, ","),
		DictDir:     resolvePath(baseDir, opts.DictDir),
		LengthScale: 1.0,
	}
	config.Model.NumThreads = opts.NumThreads
	config.Model.Debug = debug
	config.Model.Provider = opts.Provider
	config.MaxNumSentences = 1

	impl := sherpa.NewOfflineTts(config)
	if impl == nil {
		return nil, fmt.Errorf("[tts] kokoro: 创建 OfflineTts 失败，模型路径: %s", modelPath)
	}

	logger.Infof("[tts] kokoro: 模型已加载 (model=%s, voices=%s, threads=%d, provider=%s)",
		modelPath, voicesPath, opts.NumThreads, opts.Provider)

	return &KokoroEngine{impl: impl}, nil
}

// Synthesize 将文本合成为单声道 float32 音频样本。
// sherpa 的推理调用不可中断，ctx 只在开始前检查一次。
func (k *KokoroEngine) Synthesize(ctx context.Context, text, voice string, speed float32) ([]float32, int, error) {
	sid, err := SpeakerID(voice)
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.impl == nil {
		return nil, 0, fmt.Errorf("[tts] kokoro: 引擎已关闭")
	}

	logger.Debugf("[tts] kokoro: 正在合成 %d 个字符，音色=%s(sid=%d)，语速=%g",
		len([]rune(text)), voice, sid, speed)

	audio := k.impl.Generate(text, sid, speed)
	if audio == nil {
		return nil, 0, fmt.Errorf("[tts] kokoro: 合成失败")
	}

	logger.Debugf("[tts] kokoro: 生成 %d 个样本，采样率 %d", len(audio.Samples), audio.SampleRate)

	return audio.Samples, audio.SampleRate, nil
}

// Close 释放底层资源。
func (k *KokoroEngine) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.impl != nil {
		sherpa.DeleteOfflineTts(k.impl)
		k.impl = nil
	}
}

// resolvePath 将相对路径解析到 baseDir 下，空路径保持为空。
func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
