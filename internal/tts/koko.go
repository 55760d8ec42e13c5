package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/iabetor/kokoro-tts/internal/audio"
	"github.com/iabetor/kokoro-tts/internal/logger"
)

// KokoOptions 是 koko CLI 的运行参数。
type KokoOptions struct {
	Binary        string // koko 可执行文件，默认从 PATH 查找
	EspeakDataDir string // 非空时通过 ESPEAK_DATA_PATH 传给 koko
}

// KokoEngine 使用 koko CLI 子进程实现语音合成，模型文件与进程内引擎相同。
type KokoEngine struct {
	binary     string
	modelPath  string
	voicesPath string
	espeakDir  string
}

// NewKokoOpener 返回创建 KokoEngine 的 Opener。
func NewKokoOpener(opts KokoOptions) Opener {
	return func(modelPath, voicesPath string) (Engine, error) {
		return NewKokoEngine(modelPath, voicesPath, opts)
	}
}

// NewKokoEngine 检查 koko 可执行文件和模型文件是否存在。
func NewKokoEngine(modelPath, voicesPath string, opts KokoOptions) (*KokoEngine, error) {
	binary := opts.Binary
	if binary == "" {
		binary = "koko"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("[tts] koko: 找不到可执行文件 %s: %w", binary, err)
	}

	for _, p := range []string{modelPath, voicesPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("[tts] koko: 模型资源不可用: %w", err)
		}
	}

	return &KokoEngine{
		binary:     resolved,
		modelPath:  modelPath,
		voicesPath: voicesPath,
		espeakDir:  opts.EspeakDataDir,
	}, nil
}

// Synthesize 调用 koko 生成单声道 WAV，再解码为 float32 样本。
func (k *KokoEngine) Synthesize(ctx context.Context, text, voice string, speed float32) ([]float32, int, error) {
	logger.Debugf("[tts] koko: 正在合成 %d 个字符，音色=%s，语速=%g", len([]rune(text)), voice, speed)

	wavPath := filepath.Join(os.TempDir(), "kokoro-tts-"+uuid.New().String()+".wav")
	defer os.Remove(wavPath)

	cmd := exec.CommandContext(ctx, k.binary,
		"-m", k.modelPath,
		"-d", k.voicesPath,
		"-s", voice,
		"--speed", strconv.FormatFloat(float64(speed), 'g', -1, 32),
		"--mono",
		"text", text,
		"-o", wavPath,
	)
	if k.espeakDir != "" {
		cmd.Env = append(os.Environ(), "ESPEAK_DATA_PATH="+k.espeakDir)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("[tts] koko 执行失败: %w, stderr: %s %s", err, stderr.String(), stdout.String())
	}

	wavData, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] koko: 读取输出文件失败: %w", err)
	}
	if len(wavData) == 0 {
		return nil, 0, fmt.Errorf("[tts] koko: 未收到音频数据")
	}

	samples, sampleRate, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] koko: 解析 WAV 失败: %w", err)
	}

	logger.Debugf("[tts] koko: 生成 %d 个单声道 float32 样本，采样率 %d", len(samples), sampleRate)

	return samples, sampleRate, nil
}

// Close 无需释放资源，子进程在每次合成后已退出。
func (k *KokoEngine) Close() {}
