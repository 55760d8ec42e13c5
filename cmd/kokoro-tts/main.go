// kokoro-tts 从 stdin 读取文本，用 Kokoro 模型合成后把 16-bit LE 单声道 PCM 写到 stdout。
//
// 用法: echo "Hello" | kokoro-tts <model_dir> [voice] [speed]
//
// 成功时在 stderr 输出一行 sample_rate=<N>。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iabetor/kokoro-tts/internal/bridge"
	"github.com/iabetor/kokoro-tts/internal/cache"
	"github.com/iabetor/kokoro-tts/internal/config"
	"github.com/iabetor/kokoro-tts/internal/logger"
	"github.com/iabetor/kokoro-tts/internal/tts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := app{loadConfig: config.LoadDefault, newOpener: newOpener}
	code := a.run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}

// app 组装配置、日志、缓存和合成后端，测试时替换其中的函数。
type app struct {
	loadConfig func() (*config.Config, error)
	newOpener  func(cfg *config.Config) (tts.Opener, error)
}

// run 返回进程退出码：成功（含空输入）为 0，其余情况为 1。
func (a app) run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	req, err := bridge.ParseArgs(args)
	if errors.Is(err, bridge.ErrUsage) {
		fmt.Fprintln(stderr, bridge.Usage)
		return 1
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if err := a.execute(ctx, req, stdin, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func (a app) execute(ctx context.Context, req bridge.Request, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Console:    stderr,
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	open, err := a.newOpener(cfg)
	if err != nil {
		return err
	}

	opts := []bridge.Option{bridge.WithClamp(cfg.Audio.Clamp), bridge.WithBackend(cfg.Engine)}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			logger.Warnf("[main] 缓存不可用，本次不使用缓存: %v", err)
		} else {
			defer store.Close()
			opts = append(opts, bridge.WithCache(store))
		}
	}

	logger.Debugf("[main] engine=%s model_dir=%s voice=%s speed=%g", cfg.Engine, req.ModelDir, req.Voice, req.Speed)

	return bridge.New(open, opts...).Run(ctx, req, stdin, stdout, stderr)
}

// newOpener 根据配置选择合成后端。
func newOpener(cfg *config.Config) (tts.Opener, error) {
	switch cfg.Engine {
	case config.EngineKokoro:
		return tts.NewKokoroOpener(tts.KokoroOptions{
			Tokens:     cfg.Kokoro.Tokens,
			DataDir:    cfg.Kokoro.DataDir,
			Lexicon:    cfg.Kokoro.Lexicon,
			DictDir:    cfg.Kokoro.DictDir,
			NumThreads: cfg.Kokoro.NumThreads,
			Provider:   cfg.Kokoro.Provider,
			Debug:      cfg.Kokoro.Debug,
		}), nil
	case config.EngineKoko:
		return tts.NewKokoOpener(tts.KokoOptions{
			Binary:        cfg.Koko.Binary,
			EspeakDataDir: cfg.Koko.EspeakDataDir,
		}), nil
	default:
		return nil, fmt.Errorf("未知的合成后端: %s", cfg.Engine)
	}
}
