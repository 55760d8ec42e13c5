// Package cache 用 SQLite 保存合成结果，相同的后端、模型、文本、音色和语速不再重复推理。
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/iabetor/kokoro-tts/internal/logger"
)

// Store 是合成缓存的 SQLite 连接。
type Store struct {
	db *sql.DB
}

// KeyInput 是决定一次合成结果的全部输入。
type KeyInput struct {
	Backend    string // 合成后端名称
	ModelPath  string
	VoicesPath string
	Voice      string
	Speed      float32
	Text       string
}

// Key 计算缓存键（SHA-256 十六进制）。字段之间用 \x00 分隔。
func Key(in KeyInput) string {
	h := sha256.New()
	for _, part := range []string{
		in.Backend,
		in.ModelPath,
		in.VoicesPath,
		in.Voice,
		strconv.FormatFloat(float64(in.Speed), 'g', -1, 32),
		in.Text,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Open 打开或创建缓存数据库，并完成建表。
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("[cache] 数据库路径为空")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("[cache] 创建缓存目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("[cache] 打开数据库失败: %w", err)
	}

	// 多个进程可能同时读写同一个缓存文件
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("[cache] 设置 WAL 模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("[cache] 设置 busy_timeout 失败: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugf("[cache] 缓存已打开: %s", dbPath)
	return s, nil
}

// Migrate 创建缓存表。
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS synth_cache (
		cache_key TEXT PRIMARY KEY,
		sample_rate INTEGER NOT NULL,
		samples BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("[cache] 数据库迁移失败: %w", err)
	}
	return nil
}

// Lookup 查找缓存，未命中时 ok 为 false 且 err 为 nil。
func (s *Store) Lookup(key string) (samples []float32, sampleRate int, ok bool, err error) {
	var blob []byte
	row := s.db.QueryRow(`SELECT sample_rate, samples FROM synth_cache WHERE cache_key = ?`, key)
	if err := row.Scan(&sampleRate, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("[cache] 查询缓存失败: %w", err)
	}
	if len(blob)%4 != 0 {
		return nil, 0, false, fmt.Errorf("[cache] 缓存数据损坏: %d 字节", len(blob))
	}
	return decodeSamples(blob), sampleRate, true, nil
}

// Put 写入或覆盖一条缓存。
func (s *Store) Put(key string, samples []float32, sampleRate int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO synth_cache (cache_key, sample_rate, samples) VALUES (?, ?, ?)`,
		key, sampleRate, encodeSamples(samples),
	)
	if err != nil {
		return fmt.Errorf("[cache] 写入缓存失败: %w", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeSamples(samples []float32) []byte {
	out := make([]byte, 0, len(samples)*4)
	for _, v := range samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func decodeSamples(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
