// Package bridge 实现 stdin 文本 → Kokoro 合成 → stdout 16-bit PCM 的单次转换。
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iabetor/kokoro-tts/internal/audio"
	"github.com/iabetor/kokoro-tts/internal/cache"
	"github.com/iabetor/kokoro-tts/internal/logger"
	"github.com/iabetor/kokoro-tts/internal/tts"
)

// Usage 是参数不足时打印到 stderr 的用法说明。
const Usage = "Usage: kokoro-tts <model_dir> [voice] [speed]"

// DefaultSpeed 是未指定语速时的倍率。
const DefaultSpeed float32 = 1.0

// ErrUsage 表示缺少必需的 model_dir 参数。
var ErrUsage = errors.New("缺少 model_dir 参数")

// Request 是一次调用的参数。
type Request struct {
	ModelDir string
	Voice    string
	Speed    float32
}

// ParseArgs 解析位置参数（不含程序名）：<model_dir> [voice] [speed]。
// 多余的参数被忽略；speed 不做范围校验，原样交给合成后端。
func ParseArgs(args []string) (Request, error) {
	if len(args) < 1 {
		return Request{}, ErrUsage
	}

	req := Request{
		ModelDir: args[0],
		Voice:    tts.DefaultVoice,
		Speed:    DefaultSpeed,
	}
	if len(args) > 1 {
		req.Voice = args[1]
	}
	if len(args) > 2 {
		// 按 64 位解析，超出 float32 范围的值转换为 ±Inf 而不报错
		speed, err := strconv.ParseFloat(strings.TrimSpace(args[2]), 64)
		if err != nil {
			return Request{}, fmt.Errorf("[bridge] 无效的 speed 参数 %q: %w", args[2], err)
		}
		req.Speed = float32(speed)
	}
	return req, nil
}

// Cache 是可选的合成结果缓存。
type Cache interface {
	Lookup(key string) ([]float32, int, bool, error)
	Put(key string, samples []float32, sampleRate int) error
}

// Option 配置 Bridge。
type Option func(*Bridge)

// WithCache 启用合成缓存，c 为 nil 时不启用。
func WithCache(c Cache) Option {
	return func(b *Bridge) { b.cache = c }
}

// WithClamp 设置是否在缩放前把样本钳位到 [-1, 1]。
func WithClamp(clamp bool) Option {
	return func(b *Bridge) { b.clamp = clamp }
}

// WithBackend 设置合成后端名称，用于区分不同后端的缓存。
func WithBackend(name string) Option {
	return func(b *Bridge) { b.backend = name }
}

// Bridge 持有创建引擎的方式和输出选项，每次 Run 处理一个请求。
type Bridge struct {
	open    tts.Opener
	backend string
	cache   Cache
	clamp   bool
}

// New 创建 Bridge。
func New(open tts.Opener, opts ...Option) *Bridge {
	b := &Bridge{open: open}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run 执行一次合成：
// 加载模型 → 读取并裁剪 stdin → 空文本直接返回 → 合成一次 → 一次性写出 PCM → 在 stderr 报告采样率。
// 任何错误都在写 stdout 之前返回。
func (b *Bridge) Run(ctx context.Context, req Request, stdin io.Reader, stdout, stderr io.Writer) error {
	modelPath, voicesPath := tts.ModelPaths(req.ModelDir)

	engine, err := b.open(modelPath, voicesPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	raw, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("[bridge] 读取 stdin 失败: %w", err)
	}
	if !utf8.Valid(raw) {
		return errors.New("[bridge] stdin 不是有效的 UTF-8 文本")
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		logger.Debugf("[bridge] 输入为空，跳过合成")
		return nil
	}

	samples, sampleRate, err := b.synthesize(ctx, engine, b.cacheKey(modelPath, voicesPath, text, req))
	if err != nil {
		return err
	}

	pcm := audio.PCM16(samples, b.clamp)
	if _, err := stdout.Write(pcm); err != nil {
		return fmt.Errorf("[bridge] 写入 stdout 失败: %w", err)
	}

	if _, err := fmt.Fprintf(stderr, "sample_rate=%d\n", sampleRate); err != nil {
		return fmt.Errorf("[bridge] 写入 stderr 失败: %w", err)
	}
	return nil
}

// cacheKey 汇总决定合成结果的输入，模型路径取绝对路径。
func (b *Bridge) cacheKey(modelPath, voicesPath, text string, req Request) cache.KeyInput {
	return cache.KeyInput{
		Backend:    b.backend,
		ModelPath:  absPath(modelPath),
		VoicesPath: absPath(voicesPath),
		Voice:      req.Voice,
		Speed:      req.Speed,
		Text:       text,
	}
}

// synthesize 先查缓存，未命中时调用引擎并回写缓存。缓存错误只记录警告。
func (b *Bridge) synthesize(ctx context.Context, engine tts.Engine, in cache.KeyInput) ([]float32, int, error) {
	var key string
	if b.cache != nil {
		key = cache.Key(in)
		samples, sampleRate, ok, err := b.cache.Lookup(key)
		switch {
		case err != nil:
			logger.Warnf("[bridge] 查询缓存失败，继续合成: %v", err)
		case ok:
			logger.Debugf("[bridge] 缓存命中: %s", key)
			return samples, sampleRate, nil
		}
	}

	samples, sampleRate, err := engine.Synthesize(ctx, in.Text, in.Voice, in.Speed)
	if err != nil {
		return nil, 0, err
	}

	if b.cache != nil {
		if err := b.cache.Put(key, samples, sampleRate); err != nil {
			logger.Warnf("[bridge] 写入缓存失败: %v", err)
		}
	}
	return samples, sampleRate, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
